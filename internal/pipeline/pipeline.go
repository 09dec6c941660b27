// Package pipeline drives a single stock query from free text to stock rows:
// normalize the location, then either scrape, ask for clarification, or
// stop with an error.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bloodstock/internal/model"
	"github.com/sells-group/bloodstock/internal/resolve"
	"github.com/sells-group/bloodstock/pkg/eraktkosh"
)

// Step names a pipeline state.
type Step string

const (
	StepStart     Step = "start"
	StepNormalize Step = "normalize"
	StepScrape    Step = "scrape"
	StepClarify   Step = "clarify"
	stepDone      Step = "done"
)

// SessionOpener acquires a scoped session on the stock source.
type SessionOpener interface {
	NewSession(ctx context.Context) (eraktkosh.Session, error)
}

// Request is the input of one pipeline run. Location wins over Messages;
// when Location is empty the last message is used as the location query.
type Request struct {
	Messages           []string
	Location           string
	BloodGroupCode     string
	BloodComponentCode string
}

// Result is the terminal state of a run. Step is the last step executed.
// Err is nil only when the scrape step succeeded.
type Result struct {
	RunID    string
	Step     Step
	Query    string
	Outcome  resolve.Outcome
	Location *resolve.Location
	Stock    []model.StockResult
	Err      error
}

// Pipeline resolves and fetches. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	resolver *resolve.Resolver
	source   SessionOpener
	steps    map[Step]stepFunc
}

type stepFunc func(ctx context.Context, r *Result, req Request) Step

// New creates a Pipeline over a resolver and a stock source.
func New(resolver *resolve.Resolver, source SessionOpener) *Pipeline {
	p := &Pipeline{resolver: resolver, source: source}
	p.steps = map[Step]stepFunc{
		StepNormalize: p.normalize,
		StepClarify:   p.clarify,
		StepScrape:    p.scrape,
	}
	return p
}

// Run executes the pipeline to a terminal state. It never retries; a
// caller-level timeout on ctx is honored by the scrape step.
func (p *Pipeline) Run(ctx context.Context, req Request) *Result {
	res := &Result{RunID: uuid.NewString(), Step: StepStart}
	start := time.Now()

	for next := StepNormalize; next != stepDone; {
		res.Step = next
		next = p.steps[next](ctx, res, req)
	}

	fields := []zap.Field{
		zap.String("run_id", res.RunID),
		zap.String("step", string(res.Step)),
		zap.String("query", res.Query),
		zap.Int("rows", len(res.Stock)),
		zap.Duration("elapsed", time.Since(start)),
	}
	if res.Err != nil {
		zap.L().Info("pipeline: run ended with error", append(fields, zap.Error(res.Err))...)
	} else {
		zap.L().Info("pipeline: run complete", fields...)
	}
	return res
}

func (p *Pipeline) normalize(_ context.Context, r *Result, req Request) Step {
	query := req.Location
	if query == "" && len(req.Messages) > 0 {
		query = req.Messages[len(req.Messages)-1]
	}
	if query == "" {
		r.Err = ErrNoInput
		return stepDone
	}
	r.Query = query

	r.Outcome = p.resolver.Resolve(query)
	switch o := r.Outcome.(type) {
	case resolve.Resolved:
		loc := o.Location
		r.Location = &loc
		return StepScrape
	case resolve.Ambiguous:
		return StepClarify
	case resolve.NotFound:
		r.Err = &LocationNotFoundError{Query: o.Query}
		return stepDone
	default:
		r.Err = &LocationNotFoundError{Query: query}
		return stepDone
	}
}

func (p *Pipeline) clarify(_ context.Context, r *Result, _ Request) Step {
	amb, _ := r.Outcome.(resolve.Ambiguous)
	r.Err = &AmbiguousError{Candidates: amb.Candidates}
	return stepDone
}

func (p *Pipeline) scrape(ctx context.Context, r *Result, req Request) Step {
	if r.Location == nil || r.Location.StateCode == "" || r.Location.DistrictCode == "" || req.BloodGroupCode == "" {
		r.Err = ErrMissingFields
		return stepDone
	}

	stock, err := p.fetch(ctx, model.StockQuery{
		StateCode:          r.Location.StateCode,
		DistrictCode:       r.Location.DistrictCode,
		BloodGroupCode:     req.BloodGroupCode,
		BloodComponentCode: req.BloodComponentCode,
	})
	if err != nil {
		r.Err = &FetchFailureError{Message: err.Error()}
		return stepDone
	}
	r.Stock = stock
	return stepDone
}

// fetch acquires a session, fetches and always releases the session, also
// when the source panics.
func (p *Pipeline) fetch(ctx context.Context, q model.StockQuery) (rows []model.StockResult, err error) {
	if p.source == nil {
		return nil, eris.New("stock source not configured")
	}
	sess, err := p.source.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			rows, err = nil, eris.Errorf("%v", rec)
		}
		if cerr := sess.Close(); cerr != nil {
			zap.L().Warn("pipeline: release session failed", zap.Error(cerr))
		}
	}()
	return sess.FetchStock(ctx, q)
}
