package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaricco/kimai-cli/internal/export"
	"github.com/pbaricco/kimai-cli/internal/mailer"
	"github.com/pbaricco/kimai-cli/internal/target"
)

var (
	exportCustomerID  int64
	exportPeriod      string
	exportTargetFile  string
	exportHideRates   string
	exportCustomTitle string
	exportEmailTo     string
)

var exportCmd = &cobra.Command{
	Use:     "export <user> <format>",
	Aliases: []string{"kimai:export:timesheet"},
	Short:   "Exports timesheet data from commandline",
	Long: `Export the timesheets of <user> in <format> (csv, json, md, xlsx).

Without --period only today's entries are exported. The rendered file is
e-mailed with --email_to and kept with --target_file (a path or
s3://bucket/key); otherwise it is deleted.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Int64Var(&exportCustomerID, "customer_id", 0, "Only export this customer")
	exportCmd.Flags().StringVar(&exportPeriod, "period", "", "supports: week,month,week-1,week-n,month-1,month-n")
	exportCmd.Flags().StringVar(&exportTargetFile, "target_file", "", "optional, if set, saves data to the specified file or s3://bucket/key")
	exportCmd.Flags().StringVar(&exportHideRates, "hide_rates", "", "hides all the rates columns when set to 1")
	exportCmd.Flags().StringVar(&exportCustomTitle, "custom_title", "", "adds this string in the email subject")
	exportCmd.Flags().StringVar(&exportEmailTo, "email_to", "", "if set, data is sent via email")
}

// truthy treats any value except "", "0" and "false" as set.
func truthy(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != "0" && !strings.EqualFold(v, "false")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	deps := export.Deps{
		Store:   store,
		Service: export.NewService(""),
		Saver:   target.NewSaver(),
		Out:     cmd.OutOrStdout(),
		Log:     log,
	}
	if exportEmailTo != "" {
		if deps.Mailer, err = newMailer(ctx); err != nil {
			return err
		}
	}

	_, err = export.Run(ctx, deps, export.Options{
		User:        args[0],
		Format:      args[1],
		CustomerID:  exportCustomerID,
		Period:      exportPeriod,
		TargetFile:  exportTargetFile,
		HideRates:   truthy(exportHideRates),
		CustomTitle: exportCustomTitle,
		EmailTo:     exportEmailTo,
		EmailFrom:   cfg.Mailer.From,
	})
	return err
}

func newMailer(ctx context.Context) (mailer.Sender, error) {
	transport, err := mailer.ParseDSN(cfg.Mailer.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Mailer.From == "" {
		return nil, fmt.Errorf("no sender address: set %s or mailer.from", "MAILER_FROM")
	}

	var oauth *mailer.OAuth2
	if o := cfg.Mailer.OAuth2; o != nil {
		oauth = &mailer.OAuth2{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			TokenURL:     o.TokenURL,
			RefreshToken: o.RefreshToken,
			Scopes:       o.Scopes,
		}
	}
	tokens, err := oauth.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return mailer.New(transport, tokens), nil
}
