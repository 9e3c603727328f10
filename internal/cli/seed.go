package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deicod/querystudy/internal/seed"
	"github.com/deicod/querystudy/orm/gen"
	"github.com/deicod/querystudy/orm/pg"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the two study teams and their four members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close(ctx)

			var fx *seed.Fixture
			err = a.db.InTx(ctx, func(tx *pg.Tx) error {
				fx, err = seed.Run(ctx, gen.NewClient(tx, a.clientOptions()...))
				return err
			})
			if err != nil {
				return wrapError("seed", err, "Run `querystudy migrate up` first.", 1)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded teams %d, %d and %d members\n",
				fx.TeamA.ID, fx.TeamB.ID, len(fx.Members))
			return nil
		},
	}
}
