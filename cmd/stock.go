package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	stockGroup     string
	stockComponent string
)

var stockCmd = &cobra.Command{
	Use:   "stock <location>",
	Short: "Fetch live blood stock for a location",
	Example: `  bloodstock stock Pune --group "O+"
  bloodstock stock "west bengal" --group AB- --component "Fresh Frozen Plasma"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "stock")
		if err != nil {
			return err
		}

		out := env.Service.FetchStock(cmd.Context(), strings.Join(args, " "), stockGroup, stockComponent)
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	stockCmd.Flags().StringVar(&stockGroup, "group", "", "blood group, e.g. O+ or AB-")
	stockCmd.Flags().StringVar(&stockComponent, "component", "", "blood component (default from config)")
	_ = stockCmd.MarkFlagRequired("group")
	rootCmd.AddCommand(stockCmd)
}
