// Command pricectl runs one-shot predictions and inspects the prediction log.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricecast/collector"
	"pricecast/config"
	"pricecast/db"
	"pricecast/export"
	"pricecast/logging"
	"pricecast/ml"
	"pricecast/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type options struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "pricectl",
		Short:        "Predict closing prices and manage the prediction log",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stdout")

	root.AddCommand(
		newHistoryCmd(opts),
		newExportCmd(opts),
		newPredictCmd(opts),
	)
	return root
}

// env is what every subcommand needs; close releases the store.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  db.Store
}

func (o *options) open(ctx context.Context) (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := zap.NewNop()
	if o.verbose {
		if logger, err = logging.New(cfg.LogConfig()); err != nil {
			return nil, err
		}
	}
	store, err := db.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, store: store}, nil
}

func (e *env) close() {
	e.store.Close()
	_ = e.logger.Sync()
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print saved predictions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			history, err := e.store.LoadHistory(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(history) > limit {
				history = history[:limit]
			}
			return printHistory(cmd.OutOrStdout(), history)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most N rows (0 = all)")
	return cmd
}

func printHistory(w io.Writer, history []db.PredictionRecord) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "no predictions yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tDATE\tOPEN\tVOLUME\tRSI\tPREDICTED\t")
	for _, h := range history {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%d\t%.2f\t%.2f\t\n",
			h.ID,
			h.PredictionDate.Local().Format("2006-01-02 15:04:05"),
			h.Features.Open,
			h.Features.Volume,
			h.Features.RSI,
			h.PredictedPrice,
		)
	}
	return tw.Flush()
}

func newExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the prediction log as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			history, err := e.store.LoadHistory(cmd.Context())
			if err != nil {
				return err
			}

			if out == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), history)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(f, history); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(history), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", export.FileName, `output file ("-" for stdout)`)
	return cmd
}

func newPredictCmd(opts *options) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict a closing price from indicator flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]float64)
			for _, f := range collector.Fields() {
				raw := cmd.Flags().Lookup(flagName(f.Name)).Value.String()
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return &ml.InvalidInputError{Field: f.Name, Reason: fmt.Sprintf("%q is not a number", raw)}
				}
				values[f.Name] = v
			}
			rec, adjustments, err := collector.FromMap(values)
			if err != nil {
				return err
			}

			e, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			model, err := ml.LoadCached(e.cfg.ML.ModelType, e.cfg.ML.ModelPath, 0)
			if err != nil {
				return err
			}
			predictor, err := ml.NewPredictor(model, ml.StockSchema)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, a := range adjustments {
				fmt.Fprintf(w, "warning: %s\n", a)
			}

			if !save {
				price, err := predictor.Predict(cmd.Context(), rec)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "predicted closing price: $%.2f\n", price)
				return nil
			}

			outcome, err := service.New(predictor, e.store, e.logger).Predict(cmd.Context(), rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "predicted closing price: $%.2f\n", outcome.Prediction)
			fmt.Fprintf(w, "rsi %s  daily return %s  volatility %s\n",
				outcome.Metrics.RSI, outcome.Metrics.DailyReturn, outcome.Metrics.Volatility)
			if !outcome.Saved {
				return fmt.Errorf("prediction not saved: %w", outcome.SaveErr)
			}
			fmt.Fprintln(w, "saved")
			return nil
		},
	}
	for _, f := range collector.Fields() {
		cmd.Flags().String(flagName(f.Name), strconv.FormatFloat(f.Default, 'f', -1, 64), f.Label)
	}
	cmd.Flags().BoolVar(&save, "save", false, "record the prediction in the log")
	return cmd
}

func flagName(feature string) string { return strings.ToLower(feature) }
