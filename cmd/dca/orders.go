package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/azerpas/bourso-desktop/internal/app"
	"github.com/azerpas/bourso-desktop/internal/order"
	"github.com/azerpas/bourso-desktop/internal/position"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Passed orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the order history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			orders, err := a.History().List()
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Println("No orders.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tORDER\tPRICE")
			for _, o := range orders {
				fmt.Fprintf(w, "%s\t%s\t%.4f\n", o.ID, o.Args.Describe(), o.Price)
			}
			return w.Flush()
		})
	},
}

var ordersSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Net shares and invested amount per symbol from the order history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			orders, err := a.History().List()
			if err != nil {
				return err
			}
			summary := position.Summarize(orders)
			if len(summary.Holdings) == 0 {
				fmt.Println("No orders.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SYMBOL\tSHARES\tINVESTED\tAVG COST\tPROCEEDS\tORDERS")
			for _, h := range summary.Holdings {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\n",
					h.Symbol, h.Shares, h.Invested.StringFixed(2),
					h.AverageCost(summary.Bought[h.Symbol]).StringFixed(4),
					h.Proceeds.StringFixed(2), h.Orders)
			}
			return w.Flush()
		})
	},
}

var ordersPlaceFlags struct {
	side     string
	account  string
	symbol   string
	quantity int64
}

var ordersPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a one-off market order outside any job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		side, err := order.ParseSide(ordersPlaceFlags.side)
		if err != nil {
			return err
		}
		args := order.Args{
			Account:  ordersPlaceFlags.account,
			Symbol:   ordersPlaceFlags.symbol,
			Quantity: order.Int64(ordersPlaceFlags.quantity),
			Side:     side,
		}
		if err := args.Validate(); err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := newConsole(a).login(ctx); err != nil {
				return err
			}
			passed, err := a.PlaceOrder(ctx, args)
			if err != nil {
				return err
			}
			fmt.Printf("Order %s passed at %.4f: %s\n", passed.ID, passed.Price, args.Describe())
			return nil
		})
	},
}

func init() {
	f := ordersPlaceCmd.Flags()
	f.StringVar(&ordersPlaceFlags.side, "side", string(order.SideBuy), "buy or sell")
	f.StringVar(&ordersPlaceFlags.account, "account", "", "account id")
	f.StringVar(&ordersPlaceFlags.symbol, "symbol", "", "instrument symbol")
	f.Int64Var(&ordersPlaceFlags.quantity, "quantity", 0, "number of shares")

	ordersCmd.AddCommand(ordersListCmd, ordersSummaryCmd, ordersPlaceCmd)
}
