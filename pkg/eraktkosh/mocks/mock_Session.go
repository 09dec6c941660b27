package mocks

import (
	"context"

	model "github.com/sells-group/bloodstock/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockSession is a mock type for the Session interface.
type MockSession struct {
	mock.Mock
}

// FetchStock provides a mock function with given fields: ctx, q
func (_m *MockSession) FetchStock(ctx context.Context, q model.StockQuery) ([]model.StockResult, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for FetchStock")
	}

	var r0 []model.StockResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.StockQuery) ([]model.StockResult, error)); ok {
		return rf(ctx, q)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.StockQuery) []model.StockResult); ok {
		r0 = rf(ctx, q)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.StockResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.StockQuery) error); ok {
		r1 = rf(ctx, q)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Close provides a mock function with no fields
func (_m *MockSession) Close() error {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Close")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// NewMockSession creates a new instance of MockSession.
func NewMockSession(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSession {
	mock := &MockSession{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
