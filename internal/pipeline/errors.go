package pipeline

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bloodstock/internal/resolve"
)

var (
	// ErrNoInput means neither a location nor a prior message was given.
	ErrNoInput = eris.New("No input provided")
	// ErrMissingFields means scrape was reached without a full code tuple.
	ErrMissingFields = eris.New("Missing location or blood group details.")
)

// LocationNotFoundError reports a query that matched no state or district.
type LocationNotFoundError struct {
	Query string
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("Could not find location '%s'. Please be more specific.", e.Query)
}

// AmbiguousPrompt opens the message of an AmbiguousError.
const AmbiguousPrompt = "Location is ambiguous. Did you mean:"

// AmbiguousError carries the candidates the user has to choose between.
// It is a prompt rather than a failure.
type AmbiguousError struct {
	Candidates []resolve.Candidate
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	b.WriteString(AmbiguousPrompt + "\n")
	for i, c := range e.Candidates {
		fmt.Fprintf(&b, "%d. %s in %s?\n", i+1, c.Name, c.StateName)
	}
	return b.String()
}

// FetchFailureError wraps a stock source failure. Message is the source's
// error text, unchanged.
type FetchFailureError struct {
	Message string
}

func (e *FetchFailureError) Error() string {
	return e.Message
}
