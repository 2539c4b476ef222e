package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// AdminStore is the part of the storage the CLI manages.
type AdminStore interface {
	AddAdmin(ctx context.Context, adminID int64) (bool, error)
	RemoveAdmin(ctx context.Context, adminID int64) (bool, error)
	ListAdmins(ctx context.Context) ([]int64, error)
}

type storeOpener func(ctx context.Context) (AdminStore, error)

func newRootCmd(open storeOpener) *cobra.Command {
	var store AdminStore

	root := &cobra.Command{
		Use:   "trialbot-admin",
		Short: "Manage trial bot administrators directly in the database",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context())
			if err != nil {
				return err
			}
			store = s
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	getStore := func() AdminStore { return store }
	root.AddCommand(newAddCmd(getStore))
	root.AddCommand(newRemoveCmd(getStore))
	root.AddCommand(newListCmd(getStore))
	return root
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram id %q: %w", arg, err)
	}
	return id, nil
}

func newAddCmd(store func() AdminStore) *cobra.Command {
	return &cobra.Command{
		Use:   "add <telegram id>",
		Short: "Grant admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			added, err := store().AddAdmin(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("adding admin: %w", err)
			}
			if !added {
				fmt.Fprintf(cmd.OutOrStdout(), "%d is already an administrator\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Administrator %d added\n", id)
			return nil
		},
	}
}

func newRemoveCmd(store func() AdminStore) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <telegram id>",
		Short: "Revoke admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			removed, err := store().RemoveAdmin(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("removing admin: %w", err)
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%d is not an administrator\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Administrator %d removed\n", id)
			return nil
		},
	}
}

func newListCmd(store func() AdminStore) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List administrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			admins, err := store().ListAdmins(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing admins: %w", err)
			}
			if len(admins) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No administrators")
				return nil
			}
			for _, id := range admins {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
