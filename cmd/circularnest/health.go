package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Health(cmd.Context()); err != nil {
				a.notify.Error(apiclient.Message(err, "API is not reachable"))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ok\n", a.client.BaseURL())
			return nil
		},
	}
}
