// Package mocks provides test doubles for the eraktkosh client.
package mocks

import (
	"context"

	model "github.com/sells-group/bloodstock/internal/model"
	eraktkosh "github.com/sells-group/bloodstock/pkg/eraktkosh"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// FetchHierarchy provides a mock function with given fields: ctx
func (_m *MockClient) FetchHierarchy(ctx context.Context) (*model.Hierarchy, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for FetchHierarchy")
	}

	var r0 *model.Hierarchy
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*model.Hierarchy, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) *model.Hierarchy); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Hierarchy)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewSession provides a mock function with given fields: ctx
func (_m *MockClient) NewSession(ctx context.Context) (eraktkosh.Session, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for NewSession")
	}

	var r0 eraktkosh.Session
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (eraktkosh.Session, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) eraktkosh.Session); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(eraktkosh.Session)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
