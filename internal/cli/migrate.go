package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/deicod/querystudy/migrations"
	"github.com/deicod/querystudy/orm/migrate"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema of the configured database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())
			st, err := newMigrator(a).Status(cmd.Context())
			if err != nil {
				return migrateError("migrate status", err)
			}
			out := cmd.OutOrStdout()
			for _, v := range st.Applied {
				fmt.Fprintf(out, "applied  %s\n", v)
			}
			for _, m := range st.Pending {
				fmt.Fprintf(out, "pending  %s %s\n", m.Version, m.Name)
			}
			if len(st.Applied)+len(st.Pending) == 0 {
				fmt.Fprintln(out, "no migrations found")
			}
			return nil
		},
	})
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())
			applied, err := newMigrator(a, migrate.WithBatchSize(batch)).Up(cmd.Context())
			if err != nil {
				return migrateError("migrate up", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			versions := make([]string, len(applied))
			for i, m := range applied {
				versions[i] = m.Version
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", strings.Join(versions, ", "))
			return nil
		},
	}
	up.Flags().IntVar(&batch, "batch", 0, "Apply at most this many migrations (0 applies all)")
	cmd.AddCommand(up)
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recently applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())
			reverted, err := newMigrator(a).Down(cmd.Context())
			if errors.Is(err, migrate.ErrNothingToRollback) {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			if err != nil {
				return migrateError("migrate down", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %s\n", reverted.Version)
			return nil
		},
	})
	return cmd
}

func newMigrator(a *app, opts ...migrate.Option) *migrate.Migrator {
	opts = append([]migrate.Option{migrate.WithLogger(a.log)}, opts...)
	starter, ok := a.db.Pool.(migrate.TxStarter)
	if !ok {
		starter = noTx{}
	}
	return migrate.New(starter, migrations.FS, opts...)
}

func migrateError(action string, err error) error {
	var drift migrate.SchemaDriftError
	switch {
	case errors.As(err, &drift):
		return wrapError(fmt.Sprintf("%s: database has versions unknown to this build: %s", action, strings.Join(drift.Missing, ", ")),
			err, "Run a build that ships those migrations or repair the tracking table.", 3)
	default:
		return wrapError(action, err, "Re-run with --verbose for details.", 1)
	}
}

// noTx stands in for pools that cannot open transactions.
type noTx struct{}

func (noTx) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return nil, errors.New("database pool does not support transactions")
}
