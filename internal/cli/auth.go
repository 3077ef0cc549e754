package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) newLoginCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through GitHub or Google",
		Long: "Prints a sign-in URL. After signing in, the browser shows a one-time\n" +
			"code; paste it here to finish.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			p := newPrompter(cmd.InOrStdin(), out)

			if provider == "" {
				provider = a.cfg.Provider
			}

			stop := a.spin(cmd, "Requesting sign-in URL...")
			consentURL, err := a.api.ConsentURL(ctx, provider)
			stop()
			if err != nil {
				return fmt.Errorf("failed to start sign-in with %s: %w", provider, err)
			}

			fmt.Fprintln(out, "Open this URL in your browser to sign in:")
			fmt.Fprintln(out, infoText.Sprintf("  %s", consentURL))

			code, err := p.Line("Code")
			if err != nil {
				return err
			}
			if code == "" {
				return errors.New("no code entered")
			}

			stop = a.spin(cmd, "Signing in...")
			tokens, err := a.api.ExchangeCode(ctx, code)
			stop()
			if err != nil {
				return fmt.Errorf("sign-in failed: %w", err)
			}

			a.session.SetTokens(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn, a.now())
			a.session.OrganizationID = uuid.Nil
			a.session.OrganizationName = ""
			a.api.SetAccessToken(tokens.AccessToken)

			if me, err := a.api.Me(ctx); err == nil {
				a.session.Email = me.Email
			} else {
				a.log.WithError(err).Debug("Could not load profile")
			}

			if err := a.session.Save(); err != nil {
				return err
			}
			fmt.Fprintln(out, successText.Sprintf("Signed in as %s", a.session.Email))

			orgs, err := a.api.ListOrganizations(ctx)
			if err != nil {
				return fmt.Errorf("failed to list organizations: %w", err)
			}
			if len(orgs) == 1 {
				return a.useOrganization(cmd, orgs[0].ID, orgs[0].Name)
			}
			fmt.Fprintf(out, "Select an organization with %s\n", codeText.Sprintf("psecret org use <name>"))
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "identity provider (github or google)")
	return cmd
}

func (a *app) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.session.LoggedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), warningText.Sprintf("Not logged in"))
				return nil
			}

			if err := a.api.Logout(cmd.Context(), a.session.RefreshToken); err != nil {
				a.log.WithError(err).Warn("Server logout failed; clearing local session anyway")
			}
			if err := a.session.Clear(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successText.Sprintf("Logged out"))
			return nil
		},
	}
}
