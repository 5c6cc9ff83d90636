package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"channel-backend/internal/domain"
	"channel-backend/internal/infrastructure/binance"
	"channel-backend/internal/logging"
	"channel-backend/internal/usecase"
)

// channelFlags binds every channel option to a command.
type channelFlags struct {
	cfg            domain.ChannelConfig
	price          string
	regressionType string
	rangeType      string
}

func newChannelFlags() *channelFlags {
	return &channelFlags{cfg: domain.DefaultChannelConfig()}
}

func (f *channelFlags) bind(fs *pflag.FlagSet) {
	d := domain.DefaultChannelConfig()
	fs.StringVar(&f.price, "price", string(d.Price), "price field: close, open, high, low, hl2, hlc3, ohlc4")
	fs.Float64Var(&f.cfg.Deviations, "deviations", d.Deviations, "band offset in standard deviations")
	fs.BoolVar(&f.cfg.FullRange, "full-range", d.FullRange, "fit over every bar, ignoring range settings")
	fs.BoolVar(&f.cfg.ExtendRight, "extend-right", d.ExtendRight, "extrapolate into the expansion area")
	fs.BoolVar(&f.cfg.ExtendLeft, "extend-left", d.ExtendLeft, "extrapolate left of a bounded range")
	fs.StringVar(&f.regressionType, "regression", string(d.RegressionType), "exponential or linear")
	fs.StringVar(&f.rangeType, "range", string(d.RangeType), `"length" or "start date"`)
	fs.IntVar(&f.cfg.Length, "length", d.Length, "trailing bar count")
	fs.IntVar(&f.cfg.StartDate, "start-date", d.StartDate, "window start, YYYYMMDD")
	fs.IntVar(&f.cfg.ExpansionBars, "expansion-bars", d.ExpansionBars, "bars in the right expansion area")
}

func (f *channelFlags) config() domain.ChannelConfig {
	c := f.cfg
	c.Price = domain.PriceField(f.price)
	c.RegressionType = domain.RegressionType(f.regressionType)
	c.RangeType = domain.RangeType(f.rangeType)
	return c
}

func Execute(ctx context.Context) error {
	var level string
	root := &cobra.Command{
		Use:           "channelctl",
		Short:         "Compute regression channels",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWithWriter(os.Stderr, level, "console")
		},
	}
	root.PersistentFlags().StringVar(&level, "log-level", "warn", "log level")
	root.AddCommand(computeCmd(), fetchCmd())
	return root.ExecuteContext(ctx)
}

func computeCmd() *cobra.Command {
	flags := newChannelFlags()
	var file string

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a channel over bars read from a JSON file (- for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			bars, err := readBars(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			bands, err := usecase.ComputeChannel(bars, flags.config())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), bands)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON array of bars")
	flags.bind(cmd.Flags())
	return cmd
}

func fetchCmd() *cobra.Command {
	flags := newChannelFlags()
	var symbol, interval, baseURL string
	var limit int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch klines from Binance and compute a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := binance.NewClient(binance.Options{BaseURL: baseURL})
			bars, err := client.GetKlines(cmd.Context(), symbol, interval, limit)
			if err != nil {
				return err
			}
			bands, err := usecase.ComputeChannel(bars, flags.config())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), bands)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "BTCUSDT", "futures symbol")
	cmd.Flags().StringVar(&interval, "interval", "1d", "kline interval")
	cmd.Flags().IntVar(&limit, "limit", 500, "number of bars")
	cmd.Flags().StringVar(&baseURL, "base-url", binance.FapiBaseURL, "Binance API base URL")
	flags.bind(cmd.Flags())
	return cmd
}

func readBars(stdin io.Reader, file string) ([]domain.Bar, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var bars []domain.Bar
	if err := json.NewDecoder(r).Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	return bars, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
