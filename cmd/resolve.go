package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bloodstock/internal/agent"
	"github.com/sells-group/bloodstock/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <text>",
	Short: "Resolve free text to a state or district under both policies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "resolve")
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		report := resolveReport{
			Query:     text,
			Normalize: env.Service.NormalizeLocation(text),
			Pipeline:  describeOutcome(env.Service.Resolve(text)),
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "resolve: marshal report")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

type resolveReport struct {
	Query     string                  `json:"query"`
	Normalize agent.NormalizeResponse `json:"normalize_location"`
	Pipeline  outcomeView             `json:"pipeline"`
}

type outcomeView struct {
	Outcome    string              `json:"outcome"`
	Location   *resolve.Location   `json:"location,omitempty"`
	Candidates []resolve.Candidate `json:"candidates,omitempty"`
}

func describeOutcome(o resolve.Outcome) outcomeView {
	v := outcomeView{Outcome: resolve.OutcomeName(o)}
	switch out := o.(type) {
	case resolve.Resolved:
		loc := out.Location
		v.Location = &loc
	case resolve.Ambiguous:
		v.Candidates = out.Candidates
	case resolve.NotFound:
	}
	return v
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
