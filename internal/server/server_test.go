package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bloodstock/internal/agent"
	"github.com/sells-group/bloodstock/internal/metrics"
	"github.com/sells-group/bloodstock/internal/model"
	"github.com/sells-group/bloodstock/pkg/eraktkosh/mocks"
)

func testHierarchy() *model.Hierarchy {
	return &model.Hierarchy{
		States:          map[string]string{"MH": "Maharashtra"},
		Districts:       map[string]map[string]string{"MH": {"521": "Pune"}},
		BloodGroups:     map[string]string{"15": "O+Ve"},
		BloodComponents: map[string]string{"11": "Packed Red Blood Cells"},
	}
}

type fakeTools struct {
	stockOut     string
	locationsErr error
	gotLocation  string
	gotGroup     string
	gotComponent string
}

func (f *fakeTools) NormalizeLocation(text string) agent.NormalizeResponse {
	return agent.NormalizeResponse{Type: "District", Name: text, Code: "1", Confidence: "100"}
}

func (f *fakeTools) FetchStock(_ context.Context, location, bloodGroup, bloodComponent string) string {
	f.gotLocation, f.gotGroup, f.gotComponent = location, bloodGroup, bloodComponent
	return f.stockOut
}

func (f *fakeTools) Locations() (string, error) {
	if f.locationsErr != nil {
		return "", f.locationsErr
	}
	return `{"states":{}}`, nil
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	h := NewRouter(&fakeTools{}, Options{})

	rr := do(t, h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestLocations(t *testing.T) {
	svc := agent.New(testHierarchy(), nil)
	h := NewRouter(svc, Options{})

	rr := do(t, h, http.MethodGet, "/locations", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.Hierarchy
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Maharashtra", got.States["MH"])
	assert.Equal(t, "Pune", got.Districts["MH"]["521"])
}

func TestLocations_Error(t *testing.T) {
	h := NewRouter(&fakeTools{locationsErr: errors.New("boom")}, Options{})

	rr := do(t, h, http.MethodGet, "/locations", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestNormalize(t *testing.T) {
	svc := agent.New(testHierarchy(), nil)
	h := NewRouter(svc, Options{})

	rr := do(t, h, http.MethodGet, "/normalize?q=pune", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var got agent.NormalizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "District", got.Type)
	assert.Equal(t, "521", got.Code)
	assert.Equal(t, "MH", got.StateCode)
	assert.Equal(t, "100", got.Confidence)
}

func TestNormalize_MissingQuery(t *testing.T) {
	h := NewRouter(&fakeTools{}, Options{})

	rr := do(t, h, http.MethodGet, "/normalize?q=%20", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "q is required")
}

func TestStock_Rows(t *testing.T) {
	client := mocks.NewMockClient(t)
	sess := mocks.NewMockSession(t)
	client.On("NewSession", mock.Anything).Return(sess, nil).Once()
	sess.On("FetchStock", mock.Anything, model.StockQuery{
		StateCode: "MH", DistrictCode: "521", BloodGroupCode: "15", BloodComponentCode: "11",
	}).Return([]model.StockResult{{BloodBankName: "Sassoon", Category: "Govt.", Availability: "Available", LastUpdated: "Live"}}, nil).Once()
	sess.On("Close").Return(nil).Once()

	h := NewRouter(agent.New(testHierarchy(), client), Options{})
	body, _ := json.Marshal(map[string]string{"location": "Pune", "blood_group": "O+"})

	rr := do(t, h, http.MethodPost, "/stock", body)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	var rows []model.StockResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Sassoon", rows[0].BloodBankName)
}

func TestStock_PassesFieldsThrough(t *testing.T) {
	tools := &fakeTools{stockOut: agent.NoStockMessage}
	h := NewRouter(tools, Options{})
	body := []byte(`{"location":"Pune","blood_group":"A+","blood_component":"Plasma"}`)

	rr := do(t, h, http.MethodPost, "/stock", body)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, agent.NoStockMessage, rr.Body.String())
	assert.Equal(t, "Pune", tools.gotLocation)
	assert.Equal(t, "A+", tools.gotGroup)
	assert.Equal(t, "Plasma", tools.gotComponent)
}

func TestStock_AmbiguousIsConflict(t *testing.T) {
	h := NewRouter(&fakeTools{stockOut: "Error: Location is ambiguous. Did you mean:\n1. X in Y?\n"}, Options{})

	rr := do(t, h, http.MethodPost, "/stock", []byte(`{"location":"Rampur","blood_group":"O+"}`))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Error: Location is ambiguous."))
}

func TestStock_AmbiguousFromService(t *testing.T) {
	hier := testHierarchy()
	hier.States["UP"] = "Uttar Pradesh"
	hier.States["WB"] = "West Bengal"
	hier.Districts["UP"] = map[string]string{"601": "Rampur City"}
	hier.Districts["WB"] = map[string]string{"801": "Rampur Hat"}
	h := NewRouter(agent.New(hier, mocks.NewMockClient(t)), Options{})

	rr := do(t, h, http.MethodPost, "/stock", []byte(`{"location":"Rampur","blood_group":"O+"}`))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "1. Rampur Hat in West Bengal?")
}

func TestStock_HardErrorsAreUnprocessable(t *testing.T) {
	h := NewRouter(agent.New(testHierarchy(), mocks.NewMockClient(t)), Options{})

	rr := do(t, h, http.MethodPost, "/stock", []byte(`{"location":"xyzzy","blood_group":"O+"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Error: Could not find location 'xyzzy'. Please be more specific.", rr.Body.String())

	rr = do(t, h, http.MethodPost, "/stock", []byte(`{"location":"Pune"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "Error: Missing location or blood group details.", rr.Body.String())
}

func TestStock_BadRequests(t *testing.T) {
	h := NewRouter(&fakeTools{}, Options{})

	rr := do(t, h, http.MethodPost, "/stock", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/stock", []byte(`{"blood_group":"O+"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "location is required")
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	svc := agent.New(testHierarchy(), nil, agent.WithMetrics(m))
	h := NewRouter(svc, Options{Metrics: m.Handler()})

	do(t, h, http.MethodGet, "/normalize?q=Maharashtra", nil)
	rr := do(t, h, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `bloodstock_resolutions_total{outcome="resolved",policy="single"} 1`)
}

func TestMetricsRoute_AbsentWithoutHandler(t *testing.T) {
	h := NewRouter(&fakeTools{}, Options{})

	rr := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewRouter(&fakeTools{}, Options{AllowedOrigins: []string{"https://app.example.org"}})

	req := httptest.NewRequest(http.MethodOptions, "/stock", nil)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.org", rr.Header().Get("Access-Control-Allow-Origin"))
}
