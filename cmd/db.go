package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pbaricco/kimai-cli/internal/storage"
)

var (
	dbUserAlias    string
	dbUserEmail    string
	dbInternalRate float64
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Create users, customers, projects, activities and rates",
}

func init() {
	addUserCmd := &cobra.Command{
		Use:  "add-user <username>",
		Args: cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *storage.Store, args []string) (int64, error) {
			u, err := s.CreateUser(cmd.Context(), args[0], dbUserAlias, dbUserEmail)
			return u.ID, err
		}),
	}
	addUserCmd.Flags().StringVar(&dbUserAlias, "alias", "", "Display name")
	addUserCmd.Flags().StringVar(&dbUserEmail, "email", "", "E-mail address")

	addCustomerCmd := &cobra.Command{
		Use:  "add-customer <name>",
		Args: cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *storage.Store, args []string) (int64, error) {
			c, err := s.CreateCustomer(cmd.Context(), args[0])
			return c.ID, err
		}),
	}

	addProjectCmd := &cobra.Command{
		Use:  "add-project <customer_id> <name>",
		Args: cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, s *storage.Store, args []string) (int64, error) {
			customerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid customer id %q", args[0])
			}
			p, err := s.CreateProject(cmd.Context(), customerID, args[1])
			return p.ID, err
		}),
	}

	addActivityCmd := &cobra.Command{
		Use:  "add-activity <name>",
		Args: cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, s *storage.Store, args []string) (int64, error) {
			a, err := s.CreateActivity(cmd.Context(), args[0])
			return a.ID, err
		}),
	}

	addRateCmd := &cobra.Command{
		Use:  "add-rate <customer_id> <rate>",
		Args: cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, s *storage.Store, args []string) (int64, error) {
			customerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid customer id %q", args[0])
			}
			rate, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return 0, fmt.Errorf("invalid rate %q", args[1])
			}
			r, err := s.CreateCustomerRate(cmd.Context(), customerID, rate, dbInternalRate)
			return r.ID, err
		}),
	}
	addRateCmd.Flags().Float64Var(&dbInternalRate, "internal", 0, "Internal rate")

	dbCmd.AddCommand(addUserCmd, addCustomerCmd, addProjectCmd, addActivityCmd, addRateCmd)
}

// withStore opens the database around create and prints the new ID.
func withStore(create func(cmd *cobra.Command, s *storage.Store, args []string) (int64, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := create(cmd, s, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created with id %d\n", id)
		return nil
	}
}
