package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaricco/kimai-cli/internal/model"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

var (
	listPeriod     string
	listCustomerID int64
)

var listCmd = &cobra.Command{
	Use:   "list <user>",
	Short: "List timesheets of a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listPeriod, "period", "", "week, month, week-n or month-n (default today)")
	listCmd.Flags().Int64Var(&listCustomerID, "customer_id", 0, "Only list this customer")
}

func runList(cmd *cobra.Command, args []string) error {
	entries, err := queryTimesheets(cmd, args[0], listPeriod, listCustomerID)
	if err != nil {
		return err
	}
	printList(cmd.OutOrStdout(), entries)
	return nil
}

// queryTimesheets loads the entries of username in period.
func queryTimesheets(cmd *cobra.Command, username, period string, customerID int64) ([]model.Timesheet, error) {
	from, to, err := timecalc.ParsePeriod(period, time.Now())
	if err != nil {
		return nil, err
	}

	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	user, err := store.UserByName(cmd.Context(), username)
	if err != nil {
		return nil, fmt.Errorf("loading user %q: %w", username, err)
	}
	q := model.TimesheetQuery{User: user, Begin: from, End: to}
	if customerID != 0 {
		q.Customers = []int64{customerID}
	}
	return store.TimesheetsForQuery(cmd.Context(), q)
}

// printList groups entries by date and prints them.
func printList(w io.Writer, entries []model.Timesheet) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	var currentDay string
	for _, e := range entries {
		day := e.Begin.Format("2006-01-02")
		if day != currentDay {
			fmt.Fprintln(w, day)
			currentDay = day
		}

		customer := ""
		if e.Project.Customer != nil {
			customer = e.Project.Customer.Name + " / "
		}
		desc := ""
		if e.Description != "" {
			desc = "  " + e.Description
		}
		fmt.Fprintf(w, "%s–%s  %s%s%s (%s h)\n",
			e.Begin.Format("15:04"), e.End.Format("15:04"),
			customer, e.Project.Name, desc,
			timecalc.FormatHours(timecalc.RoundHours(e.Duration)))
	}
}
