package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zen-systems/promptroute/pkg/classifier"
	"github.com/zen-systems/promptroute/pkg/config"
	"github.com/zen-systems/promptroute/pkg/logging"
	"github.com/zen-systems/promptroute/pkg/route"
)

var configFile string

func main() {
	logging.Init()

	rootCmd := &cobra.Command{
		Use:   "promptroute",
		Short: "Request router for a prompt-driven web-project builder",
		Long: `Promptroute classifies user requests into execution routes, adjusts
	the decision with per-user success history, caches repeat results, and
	dispatches to the matching execution pipeline.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func classifyCmd() *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "classify [request text]",
		Short: "Classify a request without dispatching it",
		Long: `Runs the intent classifier on the given text and prints the resulting
	route, confidence, and reasoning. No preference adjustment is applied and
	nothing is dispatched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := classifier.Classify(args[0])
			if err != nil {
				return err
			}

			if jsonFlag {
				data, err := json.MarshalIndent(decision, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ROUTE\t%s\n", decision.Route)
			fmt.Fprintf(w, "CONFIDENCE\t%.2f\n", decision.Confidence)
			fmt.Fprintf(w, "EST. DURATION\t%s\n", decision.EstimatedDuration)
			fmt.Fprintf(w, "EST. COST\t$%.2f\n", decision.EstimatedCost)
			fmt.Fprintf(w, "REASONING\t%s\n", decision.ReasoningText())
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the decision as JSON")

	return cmd
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show the route classes and their cache lifetimes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			policy := cfg.Routing.CacheTTL.Normalized()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROUTE\tCACHEABLE\tTTL")
			for _, r := range route.All() {
				if ttl, ok := policy.TTLFor(r); ok {
					fmt.Fprintf(w, "%s\tyes\t%s\n", r, ttl)
				} else {
					fmt.Fprintf(w, "%s\tno\t-\n", r)
				}
			}
			return w.Flush()
		},
	}
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [user-id]",
		Short: "Show a user's per-route success aggregates",
		Long: `Loads the user's routing aggregates from the configured store and
	prints success rate, sample count, and average handler duration per route.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			stores, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			prefs, err := stores.Preferences.LoadPreferences(ctx, userID)
			if err != nil {
				return fmt.Errorf("failed to load preferences: %w", err)
			}
			if len(prefs) == 0 {
				fmt.Printf("No routing history for user %s.\n", userID)
				return nil
			}

			sort.Slice(prefs, func(i, j int) bool { return prefs[i].Route < prefs[j].Route })

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ROUTE\tSUCCESS\tSAMPLES\tSUCCESS RATE\tAVG DURATION\tLAST USED")
			for _, p := range prefs {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\t%.0fms\t%s\n",
					p.Route, p.SuccessCount, p.TotalCount,
					p.SuccessRate()*100, p.AvgDurationMs,
					p.LastUsedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	return cmd
}
