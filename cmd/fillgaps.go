package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaricco/kimai-cli/internal/console"
	"github.com/pbaricco/kimai-cli/internal/gapfill"
	"github.com/pbaricco/kimai-cli/internal/git"
	"github.com/pbaricco/kimai-cli/internal/timecalc"
)

var (
	fillDay     string
	fillRefresh int
)

var fillGapsCmd = &cobra.Command{
	Use:     "fill-gaps <user>",
	Aliases: []string{"pbaricco:fill-gaps"},
	Short:   "Review git commits against timesheets day by day and add missing entries",
	Long: `Show, for every customer in the git registry of the config file, the
commits of its repositories next to the timesheets of <user>, one day at a
time. Commands: (n)ext day, (p)revious day, (q)uit, (a)dd a timesheet.`,
	Args: cobra.ExactArgs(1),
	RunE: runFillGaps,
}

func init() {
	fillGapsCmd.Flags().StringVar(&fillDay, "day", "", "Day to start from (YYYY-MM-DD, default today)")
	fillGapsCmd.Flags().IntVar(&fillRefresh, "refresh", 0, "1 = clone or pull every repository first (takes a value: --refresh 1)")
}

func runFillGaps(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	day := time.Now()
	if fillDay != "" {
		d, err := timecalc.ParseDay(fillDay)
		if err != nil {
			return err
		}
		day = d
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	tty := console.IsTerminal(out)
	opts := gapfill.Options{
		Registry:    cfg.Git.Repositories,
		CacheDir:    cfg.Git.CacheDir,
		ActivityID:  cfg.FillGaps.ActivityID,
		TargetHours: cfg.FillGaps.TargetHours,
		ColumnWidth: cfg.FillGaps.ColumnWidth,
		PauseAfter:  time.Duration(cfg.FillGaps.PauseSeconds) * time.Second,
		Color:       tty,
		ClearScreen: tty,
	}
	if tty {
		opts.ColumnWidth = console.FitColumns(console.Width(out), 2, opts.ColumnWidth)
	}
	if len(opts.Registry) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: no git repositories configured, see git.repositories in the config file")
	}

	in := gapfill.NewLineReader(cmd.InOrStdin(), out)
	gc := git.NewExecClient()

	user, err := store.UserByName(ctx, args[0])
	if err != nil {
		return fmt.Errorf("loading user %q: %w", args[0], err)
	}

	session := gapfill.NewSession(store, gc, in, out, log, user, day, opts)
	if fillRefresh == 1 {
		session.Refresh(ctx)
	}
	return session.Run(ctx)
}
