// Package cli implements the psecret command-line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/personal-secrets/internal/client"
	"github.com/dimitrije/personal-secrets/internal/secrets"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const refreshLeeway = 30 * time.Second

var (
	errNotLoggedIn    = errors.New("not logged in, run `psecret login` first")
	errNoOrganization = errors.New("no organization selected, run `psecret org use <name>` first")
)

// app is the state shared by every command of one invocation.
type app struct {
	viper      *viper.Viper
	configPath string

	cfg     *Config
	session *Session
	api     *client.Client
	log     *logrus.Logger
	now     func() time.Time
}

// NewRootCommand builds the psecret command tree.
func NewRootCommand() *cobra.Command {
	a := &app{
		viper: viper.New(),
		log:   logrus.New(),
		now:   time.Now,
	}

	root := &cobra.Command{
		Use:           "psecret",
		Short:         "Personal secrets kept encrypted on the server",
		Long:          "psecret stores web logins, credit cards and secure notes.\nEverything is encrypted on this machine with a key derived from your private key.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.psecret/config.yaml)")
	root.PersistentFlags().String("server", "", "API server base URL")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	_ = a.viper.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	_ = a.viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(
		a.newLoginCmd(),
		a.newLogoutCmd(),
		a.newOrgCmd(),
		a.newAddCmd(),
		a.newListCmd(),
		a.newShowCmd(),
		a.newEditCmd(),
		a.newDeleteCmd(),
	)

	return root
}

// Execute runs the command tree and prints a failure in red.
func Execute(ctx context.Context) int {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), errorText.Sprintf("Error: %v", err))
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command) error {
	a.log.SetOutput(cmd.ErrOrStderr())
	a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	a.log.SetLevel(logrus.WarnLevel)

	cfg, err := LoadConfig(a.viper, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if cfg.Verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}

	sess, err := LoadSession(cfg.SessionPath)
	if err != nil {
		return err
	}
	a.session = sess

	a.api = client.New(cfg.Server, client.WithLogger(a.log), client.WithAccessToken(sess.AccessToken))
	a.log.WithField("server", cfg.Server).Debug("Configuration loaded")
	return nil
}

// authorize refreshes the access token when it is about to expire.
func (a *app) authorize(ctx context.Context) error {
	if !a.session.LoggedIn() {
		return errNotLoggedIn
	}
	if !a.session.Expired(a.now(), refreshLeeway) {
		return nil
	}

	a.log.Debug("Refreshing access token")
	tokens, err := a.api.Refresh(ctx, a.session.RefreshToken)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			_ = a.session.Clear()
			return errNotLoggedIn
		}
		return fmt.Errorf("failed to refresh session: %w", err)
	}

	a.session.SetTokens(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn, a.now())
	a.api.SetAccessToken(tokens.AccessToken)
	return a.session.Save()
}

// requireOrganization authorizes and checks an organization is selected.
func (a *app) requireOrganization(ctx context.Context) error {
	if err := a.authorize(ctx); err != nil {
		return err
	}
	if !a.session.HasOrganization() {
		return errNoOrganization
	}
	return nil
}

// credential returns the private key from the environment or asks for it.
func (a *app) credential(p *prompter) (secrets.Credential, error) {
	if a.cfg.PrivateKey != "" {
		return secrets.Credential{PrivateKey: a.cfg.PrivateKey}, nil
	}
	key, err := p.Hidden("Private key")
	if err != nil {
		return secrets.Credential{}, err
	}
	return secrets.Credential{PrivateKey: key}, nil
}

func (a *app) manager() *secrets.Manager {
	return secrets.NewManager(a.api)
}

// spin starts a spinner on the command's error stream.
func (a *app) spin(cmd *cobra.Command, message string) func() {
	return startSpinner(cmd.ErrOrStderr(), message, a.cfg.Verbose)
}
