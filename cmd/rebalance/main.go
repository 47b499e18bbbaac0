// Command rebalance computes a trade plan from CSV inputs, without the HTTP
// service: positions, targets and prices come from files, the plan goes to
// stdout as CSV lines.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/loaders"
	"github.com/aristath/rebalancer/internal/rebalance"
)

type rebalanceOptions struct {
	positionsPath string
	targetsPath   string
	pricesPath    string
	cash          float64
	mode          string
	fractional    bool
	minNotional   float64
	showPost      bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rebalancer",
		Short:         "Portfolio rebalancing toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRebalanceCmd())
	return root
}

func newRebalanceCmd() *cobra.Command {
	var opts rebalanceOptions

	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Compute a trade plan from positions, targets and prices CSVs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebalance(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.positionsPath, "positions", "", "positions CSV (ticker,asset_type,quantity,price)")
	cmd.Flags().StringVar(&opts.targetsPath, "targets", "", "targets CSV (ticker,weight)")
	cmd.Flags().StringVar(&opts.pricesPath, "prices", "", "prices CSV (ticker,price[,previous_close])")
	cmd.Flags().Float64Var(&opts.cash, "cash", 0, "available cash")
	cmd.Flags().StringVar(&opts.mode, "mode", "TRADE", "BUY, SELL or TRADE")
	cmd.Flags().BoolVar(&opts.fractional, "fractional", false, "allow fractional unit quantities")
	cmd.Flags().Float64Var(&opts.minNotional, "min-notional", 0, "drop trades below this notional")
	cmd.Flags().BoolVar(&opts.showPost, "show-post", false, "print the post-trade portfolio snapshot")

	for _, name := range []string{"positions", "targets", "prices", "cash"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runRebalance(opts rebalanceOptions, out io.Writer) error {
	positions, err := loaders.LoadPositionsCSV(opts.positionsPath)
	if err != nil {
		return err
	}
	target, err := loaders.LoadTargetsCSV(opts.targetsPath)
	if err != nil {
		return err
	}
	sheet, err := loaders.LoadPricesCSV(opts.pricesPath)
	if err != nil {
		return err
	}

	mode, err := rebalance.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	pf := domain.Portfolio{Positions: positions, Cash: opts.cash}
	res, err := rebalance.Rebalance(pf, target, domain.PriceMap(sheet), mode, rebalance.Options{
		AllowFractional:  opts.fractional,
		MinTradeNotional: opts.minNotional,
	})
	if err != nil {
		return err
	}

	for _, t := range res.Trades {
		fmt.Fprintf(out, "%s,%s,%v,%v,%v\n", t.Side, t.Ticker, t.Quantity, t.Price, t.Notional())
	}
	fmt.Fprintf(out, "CASH_BEFORE,%v\n", res.CashBefore)
	fmt.Fprintf(out, "CASH_AFTER,%v\n", res.CashAfter)

	if opts.showPost {
		post, err := rebalance.ApplyTrades(pf, res.Trades, pf.AssetTypeByTicker(), "STOCK")
		if err != nil {
			return err
		}

		fmt.Fprintln(out, "POST_PORTFOLIO")
		fmt.Fprintf(out, "POST_CASH,%v\n", post.Cash)

		totalValue := 0.0
		for _, p := range post.Positions {
			px, ok := sheet[p.Ticker]
			if !ok {
				px = p.Price
			}
			mv := p.Quantity * px
			totalValue += mv
			fmt.Fprintf(out, "POST_POSITION,%s,%s,%v,%v,%v\n", p.Ticker, p.AssetType, p.Quantity, px, mv)
		}
		fmt.Fprintf(out, "POST_TOTAL_VALUE,%v\n", totalValue+post.Cash)
	}

	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
