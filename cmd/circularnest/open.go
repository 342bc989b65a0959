package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/nav"
)

func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <route>",
		Short: "Show which view a route resolves to for the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, err := nav.Parse(args[0])
			if err != nil {
				return err
			}
			user, err := a.session.Restore(cmd.Context())
			if err != nil {
				return err
			}
			view, landed := nav.Resolve(route, user)
			if landed != route {
				a.nav.Navigate(landed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%s)\n", route, landed, view)
			return nil
		},
	}
}
