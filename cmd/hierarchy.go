package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bloodstock/internal/hierarchy"
	"github.com/sells-group/bloodstock/internal/model"
)

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy",
	Short: "Manage the cached state/district hierarchy",
}

var hierarchyRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch the hierarchy from eRaktKosh and overwrite the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("hierarchy"); err != nil {
			return err
		}

		store := hierarchy.NewFileStore(cfg.Cache.Path)
		loader := hierarchy.NewLoader(store, newSourceClient(cfg))
		h, err := loader.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		zap.L().Info("hierarchy refreshed", zap.String("path", store.Path()))
		printSummary(cmd.OutOrStdout(), h)
		return nil
	},
}

var hierarchyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a summary of the cached hierarchy",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		store := hierarchy.NewFileStore(cfg.Cache.Path)
		h := store.Load()
		if hierarchy.IsEmpty(h) {
			fmt.Fprintf(cmd.OutOrStdout(), "no cached hierarchy at %s\n", store.Path())
			return nil
		}
		printSummary(cmd.OutOrStdout(), h)
		return nil
	},
}

var hierarchyImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Replace the cached hierarchy with a YAML seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}

		h, err := hierarchy.ImportYAML(args[0])
		if err != nil {
			return err
		}
		store := hierarchy.NewFileStore(cfg.Cache.Path)
		if err := store.Save(h); err != nil {
			return eris.Wrap(err, "hierarchy import")
		}

		printSummary(cmd.OutOrStdout(), h)
		return nil
	},
}

func printSummary(w io.Writer, h *model.Hierarchy) {
	fmt.Fprintf(w, "states: %d  districts: %d  blood groups: %d  components: %d\n",
		len(h.States), h.DistrictCount(), len(h.BloodGroups), len(h.BloodComponents))
	for _, code := range h.StateCodes() {
		fmt.Fprintf(w, "  %-4s %-32s %d districts\n", code, h.States[code], len(h.Districts[code]))
	}
	if len(h.BloodGroups) == 0 {
		labels := make([]string, 0, len(model.AllBloodGroups()))
		for _, g := range model.AllBloodGroups() {
			labels = append(labels, g.Label())
		}
		fmt.Fprintf(w, "blood groups (fallback): %s\n", strings.Join(labels, ", "))
	}
}

func init() {
	hierarchyCmd.AddCommand(hierarchyRefreshCmd, hierarchyShowCmd, hierarchyImportCmd)
	rootCmd.AddCommand(hierarchyCmd)
}
