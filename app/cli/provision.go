package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) provisionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "provision <email>",
		Short: "Create a user's root, trash and archive containers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer d.Close(context.Background())

			if err := d.service.ProvisionUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "provisioned %s\n", args[0])
			return nil
		},
	}
}
