package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/CircularNest/internal/apiclient"
	"github.com/dharsanguruparan/CircularNest/internal/config"
	"github.com/dharsanguruparan/CircularNest/internal/nav"
	"github.com/dharsanguruparan/CircularNest/internal/notify"
	"github.com/dharsanguruparan/CircularNest/internal/session"
	"github.com/dharsanguruparan/CircularNest/internal/tokenstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(&app{})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "circularnest: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every command needs; it is filled in before any RunE runs.
type app struct {
	apiURL    string
	tokenFile string

	cfg     *config.Config
	tokens  *tokenstore.FileStore
	nav     *nav.Recorder
	notify  notify.Notifier
	client  *apiclient.Client
	session *session.Session
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "circularnest",
		Short: "CircularNest archive client",
		Long: `circularnest talks to the CircularNest API: sign in, browse and download
circulars, submit PDFs for review and, as an administrator, review the queue.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	cmd.PersistentFlags().StringVar(&a.apiURL, "api", "", "API base URL (overrides CIRCULARNEST_API_URL)")
	cmd.PersistentFlags().StringVar(&a.tokenFile, "token-file", "", "where the session token is kept")
	cmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newSignupCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
		newCircularsCmd(a),
		newSubmitCmd(a),
		newGuestSubmitCmd(a),
		newPendingCmd(a),
		newDashboardCmd(a),
		newReviewCmd(a),
		newPreviewCmd(a),
		newMirrorCmd(a),
		newOpenCmd(a),
		newHealthCmd(a),
	)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.apiURL != "" {
		cfg.APIBaseURL = config.ResolveAPIBaseURL(a.apiURL, cfg.DevMode)
	}
	path := a.tokenFile
	if path == "" {
		path = cfg.TokenFile
	}
	if path == "" {
		path = tokenstore.DefaultPath()
	}
	a.cfg = cfg
	a.tokens = tokenstore.NewFileStore(path)
	a.notify = notify.NewConsole(os.Stderr)
	a.nav = nav.NewRecorder(func(route nav.Route) {
		if route == nav.RouteLogin {
			fmt.Fprintln(os.Stderr, "run `circularnest login` to sign in again")
		}
	})
	client, err := apiclient.New(cfg.APIBaseURL, a.tokens,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithNavigator(a.nav),
	)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}
	a.client = client
	a.session = session.New(client, a.tokens, a.notify)
	a.session.Bind(client)
	return nil
}

// requireUser restores the stored session and fails when nobody is signed in.
func (a *app) requireUser(ctx context.Context) error {
	user, err := a.session.Restore(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("not logged in, run `circularnest login` first")
	}
	return nil
}

func (a *app) requireAdmin(ctx context.Context) error {
	if err := a.requireUser(ctx); err != nil {
		return err
	}
	if !a.session.User().IsAdmin() {
		return fmt.Errorf("admin access required")
	}
	return nil
}
