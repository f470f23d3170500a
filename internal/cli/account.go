package cli

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/2beens/gymplanner/internal/remote"
)

type credentialsFlags struct {
	server   string
	username string
	password string
}

func (f *credentialsFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "cloud service url (default from prefs)")
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
}

func (a *app) applyServer(server string) {
	if server = strings.TrimSpace(server); server != "" {
		a.prefs.ServerURL = server
	}
}

// signIn logs in, stores the session in prefs and reconciles right away,
// the way a fresh sign-in does on any device.
func (a *app) signIn(cmd *cobra.Command, username, password string) error {
	id, err := a.client().Login(cmd.Context(), username, password)
	if errors.Is(err, remote.ErrUnauthorized) {
		return errors.New("wrong username or password")
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	a.prefs.SetIdentity(id)
	if err := a.savePrefs(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	printf(cmd.OutOrStdout(), "signed in as %s\n", id.Username)

	return a.runSync(cmd)
}

func (a *app) loginCmd() *cobra.Command {
	var flags credentialsFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the cloud service and sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.applyServer(flags.server)
			return a.signIn(cmd, flags.username, flags.password)
		},
	}
	flags.bind(cmd)
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var flags credentialsFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a cloud account, then sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.applyServer(flags.server)
			err := a.client().Register(cmd.Context(), flags.username, flags.password)
			if errors.Is(err, remote.ErrUsernameTaken) {
				return fmt.Errorf("username %q is taken", flags.username)
			}
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			printf(cmd.OutOrStdout(), "account %s created\n", flags.username)
			return a.signIn(cmd, flags.username, flags.password)
		},
	}
	flags.bind(cmd)
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; the plan stays on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := a.prefs.Identity()
			if !id.Present() {
				printf(cmd.OutOrStdout(), "not signed in\n")
				return nil
			}
			if err := a.client().Logout(cmd.Context(), id); err != nil {
				log.Warnf("logout on server: %s", err)
			}

			a.prefs.SetIdentity(remote.Identity{})
			if err := a.savePrefs(); err != nil {
				return fmt.Errorf("save prefs: %w", err)
			}
			printf(cmd.OutOrStdout(), "signed out %s\n", id.Username)
			return nil
		},
	}
}

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local plan with the cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd)
		},
	}
}

func (a *app) runSync(cmd *cobra.Command) error {
	s, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close(cmd, s)

	out := cmd.OutOrStdout()
	switch {
	case s.startErr != nil:
		printf(out, "sync: %s (%s), working offline\n", s.outcome, s.startErr)
	default:
		printf(out, "sync: %s\n", s.outcome)
	}
	return nil
}
