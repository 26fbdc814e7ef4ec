package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"math-bot/api/internal/config"
	"math-bot/api/internal/solver"
	"math-bot/api/internal/util"
)

var solveCmd = &cobra.Command{
	Use:   "solve <equation>",
	Short: "Solve one equation with the configured provider and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		providerName, _ := cmd.Flags().GetString("provider")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)

		ctx := cmd.Context()
		providers, closers, err := buildProviders(ctx, cfg, nil)
		if err != nil {
			return err
		}
		defer closeAll(closers)

		p := providers.Default()
		if providerName != "" {
			var ok bool
			if p, ok = providers.Lookup(providerName); !ok {
				return fmt.Errorf("unknown provider %q (available: %s)", providerName, strings.Join(providers.Names(), ", "))
			}
		}
		strategy, err := solver.ForProvider(p, nil)
		if err != nil {
			return err
		}

		problem := util.StripDollars(strings.Join(args, " "))
		res, err := strategy.Solve(ctx, problem)
		if err != nil {
			return fmt.Errorf("solve %q: %w", problem, err)
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Println(res.Text())
		return nil
	},
}

func init() {
	solveCmd.Flags().String("provider", "", "Provider name from the catalogue (default provider if empty)")
	solveCmd.Flags().Bool("json", false, "Print the full result as JSON")
}
