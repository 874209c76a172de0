package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/azerpas/bourso-desktop/internal/app"
	"github.com/azerpas/bourso-desktop/internal/job"
	"github.com/azerpas/bourso-desktop/internal/order"
	"github.com/azerpas/bourso-desktop/internal/schedule"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage scheduled jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all scheduled jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			jobs, err := a.Jobs().Load()
			if err != nil {
				return err
			}
			printJobs(jobs, time.Now())
			return nil
		})
	},
}

var jobsDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List the jobs due now without executing them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			jobs, err := a.Jobs().Load()
			if err != nil {
				return err
			}
			now := time.Now()
			printJobs(job.Due(jobs, now), now)
			return nil
		})
	},
}

var jobsAddFlags struct {
	schedule string
	day      int
	side     string
	account  string
	symbol   string
	quantity int64
	amount   float64
	from     string
	to       string
}

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a scheduled order (or transfer) job",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := schedule.Parse(jobsAddFlags.schedule, jobsAddFlags.day)
		if err != nil {
			return err
		}
		command, err := commandFromFlags(cmd)
		if err != nil {
			return err
		}

		return withApp(cmd, func(_ context.Context, a *app.App) error {
			j := job.New(s, command, time.Now())
			if err := a.Jobs().Upsert(j); err != nil {
				return err
			}
			fmt.Printf("Job added: %s\n", j.ID)
			fmt.Printf("  %s, %s\n", j.Schedule.Describe(), j.Command.Describe())
			return nil
		})
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			if err := a.Jobs().Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Job deleted: %s\n", args[0])
			return nil
		})
	},
}

var jobsSkipCmd = &cobra.Command{
	Use:   "skip <job-id>",
	Short: "Mark a job as run now without executing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(_ context.Context, a *app.App) error {
			j, err := a.Jobs().Skip(args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("Job skipped: %s (last run %s)\n", j.ID, j.LastRunTime().Format(time.RFC3339))
			return nil
		})
	},
}

func init() {
	f := jobsAddCmd.Flags()
	f.StringVar(&jobsAddFlags.schedule, "schedule", string(schedule.KindDaily), "daily, weekly or monthly")
	f.IntVar(&jobsAddFlags.day, "day", 1, "weekday (1-7) or day of month (1-31)")
	f.StringVar(&jobsAddFlags.side, "side", string(order.SideBuy), "buy or sell")
	f.StringVar(&jobsAddFlags.account, "account", "", "account id")
	f.StringVar(&jobsAddFlags.symbol, "symbol", "", "instrument symbol")
	f.Int64Var(&jobsAddFlags.quantity, "quantity", 0, "number of shares")
	f.Float64Var(&jobsAddFlags.amount, "amount", 0, "amount to invest, converted to whole shares at execution")
	f.StringVar(&jobsAddFlags.from, "transfer-from", "", "source account of a transfer job")
	f.StringVar(&jobsAddFlags.to, "transfer-to", "", "destination account of a transfer job")

	jobsCmd.AddCommand(jobsListCmd, jobsDueCmd, jobsAddCmd, jobsDeleteCmd, jobsSkipCmd)
}

func commandFromFlags(cmd *cobra.Command) (job.Command, error) {
	f := jobsAddFlags
	if f.from != "" || f.to != "" {
		if f.from == "" || f.to == "" || f.amount <= 0 {
			return job.Command{}, errors.New("transfer 需要 --transfer-from、--transfer-to 与 --amount")
		}
		return job.TransferCommand(job.TransferArgs{
			From:   f.from,
			To:     f.to,
			Amount: fmt.Sprintf("%g", f.amount),
		}), nil
	}

	side, err := order.ParseSide(f.side)
	if err != nil {
		return job.Command{}, err
	}
	args := order.Args{Account: f.account, Symbol: f.symbol, Side: side}
	switch {
	case cmd.Flags().Changed("amount"):
		args.Amount = order.Float64(f.amount)
	case cmd.Flags().Changed("quantity"):
		args.Quantity = order.Int64(f.quantity)
	}
	if err := args.Validate(); err != nil {
		return job.Command{}, err
	}
	return job.OrderCommand(args), nil
}

func printJobs(jobs []job.Job, now time.Time) {
	if len(jobs) == 0 {
		fmt.Println("No jobs.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCHEDULE\tCOMMAND\tLAST RUN\tDUE")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			j.ID, j.Schedule.Describe(), j.Command.Describe(),
			j.LastRunTime().Local().Format("2006-01-02 15:04"), j.IsDue(now))
	}
	_ = w.Flush()
}
