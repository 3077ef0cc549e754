package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) newOrgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "org",
		Aliases: []string{"orgs", "organization"},
		Short:   "List, create and select organizations",
	}
	cmd.AddCommand(a.newOrgListCmd(), a.newOrgCreateCmd(), a.newOrgUseCmd())
	return cmd
}

func (a *app) newOrgListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the organizations you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authorize(cmd.Context()); err != nil {
				return err
			}

			stop := a.spin(cmd, "Loading organizations...")
			orgs, err := a.api.ListOrganizations(cmd.Context())
			stop()
			if err != nil {
				return fmt.Errorf("failed to list organizations: %w", err)
			}

			if len(orgs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No organizations yet. Create one with %s\n",
					codeText.Sprintf("psecret org create <name>"))
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, " \tID\tNAME\tROLE")
			for _, org := range orgs {
				marker := " "
				if org.ID == a.session.OrganizationID {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, org.ID, org.Name, org.Role)
			}
			return tw.Flush()
		},
	}
}

func (a *app) newOrgCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an organization and select it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authorize(cmd.Context()); err != nil {
				return err
			}

			stop := a.spin(cmd, "Creating organization...")
			org, err := a.api.CreateOrganization(cmd.Context(), args[0])
			stop()
			if err != nil {
				return fmt.Errorf("failed to create organization: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), successText.Sprintf("Created organization %s", org.Name))
			return a.useOrganization(cmd, org.ID, org.Name)
		},
	}
}

func (a *app) newOrgUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name-or-id>",
		Short: "Scope the session to an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authorize(cmd.Context()); err != nil {
				return err
			}

			orgs, err := a.api.ListOrganizations(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list organizations: %w", err)
			}

			for _, org := range orgs {
				if org.ID.String() == args[0] || strings.EqualFold(org.Name, args[0]) {
					return a.useOrganization(cmd, org.ID, org.Name)
				}
			}
			return fmt.Errorf("no organization named %q", args[0])
		},
	}
}

// useOrganization trades the session for one scoped to orgID.
func (a *app) useOrganization(cmd *cobra.Command, orgID uuid.UUID, name string) error {
	stop := a.spin(cmd, "Switching organization...")
	tokens, err := a.api.SelectOrganization(cmd.Context(), orgID, a.session.RefreshToken)
	stop()
	if err != nil {
		return fmt.Errorf("failed to select organization: %w", err)
	}

	a.session.SetTokens(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn, a.now())
	a.session.OrganizationID = orgID
	a.session.OrganizationName = name
	a.api.SetAccessToken(tokens.AccessToken)
	if err := a.session.Save(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), successText.Sprintf("Using organization %s", name))
	return nil
}
