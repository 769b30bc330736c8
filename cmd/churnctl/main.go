package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"churn_service/internal/config"
	"churn_service/internal/core"
	"churn_service/internal/domain/model"
	"churn_service/internal/infrastructure/mlclient"
	"churn_service/internal/ingest"
	"churn_service/internal/logging"
)

type options struct {
	policyFile string
	mlURL      string
	mlTimeout  time.Duration
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "churnctl",
		Short:        "Score customer tables and compare churn snapshots",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.policyFile, "policy", os.Getenv("POLICY_FILE"), "YAML risk policy file")
	root.PersistentFlags().StringVar(&opts.mlURL, "ml-url", os.Getenv("ML_SERVICE_URL"), "prediction API base URL; empty uses the heuristic")
	root.PersistentFlags().DurationVar(&opts.mlTimeout, "ml-timeout", 5*time.Second, "prediction API timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newScoreCmd(opts),
		newCompareCmd(opts),
		newAssessCmd(opts),
		newPolicyCmd(opts),
	)
	return root
}

func (o *options) service() (*core.PredictionService, error) {
	policy, err := config.LoadPolicy(o.policyFile)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return nil, err
	}

	opts := []core.PredictionServiceOption{core.WithLogger(logger)}
	if o.mlURL != "" {
		client := mlclient.NewHTTPMLClient(o.mlURL, o.mlTimeout, logger)
		opts = append(opts, core.WithRemote(client), core.WithCatalog(client))
	}
	return core.NewPredictionService(policy, opts...), nil
}

func scoreFile(ctx context.Context, svc *core.PredictionService, path string) ([]model.ScoredCustomer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ingest.ReadCustomers(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return core.ScoreTable(ctx, rows, svc)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newScoreCmd(opts *options) *cobra.Command {
	var retention bool
	cmd := &cobra.Command{
		Use:   "score FILE.csv",
		Short: "Print dashboard figures for a customer table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			scored, err := scoreFile(cmd.Context(), svc, args[0])
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"dashboard": core.Dashboard(scored, svc.Policy()),
			}
			if retention {
				out["retention"] = core.RetentionPlan(scored, svc.Policy())
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&retention, "retention", false, "include the retention plan")
	return cmd
}

func newCompareCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compare BASELINE.csv CURRENT.csv",
		Short: "Compare two customer tables",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			var snaps [2]model.DatasetSnapshot
			for i, path := range args {
				scored, err := scoreFile(cmd.Context(), svc, path)
				if err != nil {
					return err
				}
				id, err := filepath.Abs(path)
				if err != nil {
					return err
				}
				snaps[i], err = core.Summarize(id, filepath.Base(path), "cli", scored, svc.Policy())
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			result, err := core.Compare(snaps[0], snaps[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newAssessCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "assess PROBABILITY",
		Short: "Classify a churn probability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid probability %q: %w", args[0], err)
			}
			policy, err := config.LoadPolicy(opts.policyFile)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), policy.Assess(p))
		},
	}
}

func newPolicyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective risk policy as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := config.LoadPolicy(opts.policyFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(policy)
		},
	}
}
