// Package agent exposes the tool surface used by the CLI and the HTTP
// server: location normalization, stock lookup and the locations resource.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bloodstock/internal/metrics"
	"github.com/sells-group/bloodstock/internal/model"
	"github.com/sells-group/bloodstock/internal/pipeline"
	"github.com/sells-group/bloodstock/internal/resolve"
)

const (
	// DefaultComponent is used when a stock query names no component.
	DefaultComponent = "Packed Red Blood Cells"
	// NoStockMessage is returned when the source reports no rows.
	NoStockMessage = "No stock found."
	// LocationNotFound is the error field of an unresolved normalization.
	LocationNotFound = "Location not found"
	// ErrorPrefix starts every FetchStock error text.
	ErrorPrefix = "Error: "
	// AmbiguousPrefix starts FetchStock text that asks the caller to pick a
	// location. It is a prompt, not a failure.
	AmbiguousPrefix = ErrorPrefix + pipeline.AmbiguousPrompt
)

// NormalizeResponse is the wire shape of a normalization. Either Error is
// set or Type/Name/Code are; Confidence is always present.
type NormalizeResponse struct {
	Type       string `json:"type,omitempty"`
	Name       string `json:"name,omitempty"`
	Code       string `json:"code,omitempty"`
	StateCode  string `json:"state_code,omitempty"`
	StateName  string `json:"state_name,omitempty"`
	Confidence string `json:"confidence"`
	Error      string `json:"error,omitempty"`
}

// Service binds a hierarchy to the pipeline. It is read-only after New and
// safe for concurrent use.
type Service struct {
	hierarchy        *model.Hierarchy
	resolver         *resolve.Resolver
	pipeline         *pipeline.Pipeline
	metrics          *metrics.Metrics
	defaultComponent string
	timeout          time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records resolutions and fetches on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDefaultComponent overrides DefaultComponent.
func WithDefaultComponent(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultComponent = name
		}
	}
}

// WithTimeout bounds each FetchStock call. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// New creates a Service over h and the given stock source.
func New(h *model.Hierarchy, source pipeline.SessionOpener, opts ...Option) *Service {
	if h == nil {
		h = model.NewHierarchy()
	}
	h.Fill()
	r := resolve.New(h)
	s := &Service{
		hierarchy:        h,
		resolver:         r,
		pipeline:         pipeline.New(r, source),
		defaultComponent: DefaultComponent,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetHierarchySize(len(h.States), h.DistrictCount(), len(h.BloodGroups), len(h.BloodComponents))
	return s
}

// NormalizeLocation resolves text to a single state or district.
func (s *Service) NormalizeLocation(text string) NormalizeResponse {
	res := s.resolver.ResolveSingle(text)
	conf := strconv.Itoa(res.Confidence)

	if !res.Found {
		s.metrics.ObserveResolution("single", "not_found")
		return NormalizeResponse{Error: LocationNotFound, Confidence: conf}
	}
	s.metrics.ObserveResolution("single", "resolved")
	return NormalizeResponse{
		Type:       string(res.Kind),
		Name:       res.Name,
		Code:       res.Code,
		StateCode:  res.StateCode,
		StateName:  res.StateName,
		Confidence: conf,
	}
}

// Resolve applies the pipeline resolution policy to text without fetching.
func (s *Service) Resolve(text string) resolve.Outcome {
	return s.resolver.Resolve(text)
}

// FetchStock runs the full pipeline and renders its result as text: an
// indented JSON list of rows, NoStockMessage, or "Error: " plus the
// pipeline error.
func (s *Service) FetchStock(ctx context.Context, location, bloodGroup, bloodComponent string) string {
	start := time.Now()
	if bloodComponent == "" {
		bloodComponent = s.defaultComponent
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res := s.pipeline.Run(ctx, pipeline.Request{
		Location:           location,
		BloodGroupCode:     s.resolver.BloodGroup(bloodGroup),
		BloodComponentCode: s.resolver.BloodComponent(bloodComponent),
	})
	if res.Outcome != nil {
		s.metrics.ObserveResolution("pipeline", resolve.OutcomeName(res.Outcome))
	}

	if res.Err != nil {
		var ff *pipeline.FetchFailureError
		if errors.As(res.Err, &ff) {
			s.metrics.ObserveFetch(metrics.FetchError, 0, time.Since(start))
		} else {
			s.metrics.ObserveFetch(metrics.FetchRejected, 0, time.Since(start))
		}
		return ErrorPrefix + res.Err.Error()
	}

	if len(res.Stock) == 0 {
		s.metrics.ObserveFetch(metrics.FetchEmpty, 0, time.Since(start))
		return NoStockMessage
	}
	s.metrics.ObserveFetch(metrics.FetchOK, len(res.Stock), time.Since(start))

	out, err := json.MarshalIndent(res.Stock, "", "  ")
	if err != nil {
		zap.L().Error("agent: marshal stock", zap.String("run_id", res.RunID), zap.Error(err))
		return ErrorPrefix + err.Error()
	}
	return string(out)
}

// Locations returns the cached hierarchy as indented JSON.
func (s *Service) Locations() (string, error) {
	out, err := json.MarshalIndent(s.hierarchy, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "agent: marshal hierarchy")
	}
	return string(out), nil
}

// Hierarchy returns the hierarchy the service was built with.
func (s *Service) Hierarchy() *model.Hierarchy { return s.hierarchy }
