package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dimitrije/personal-secrets/internal/client"
	"github.com/dimitrije/personal-secrets/internal/models"
	"github.com/dimitrije/personal-secrets/internal/secrets"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// promptValue is the flag value that asks for the field interactively.
const promptValue = "-"

// valueFlags are the type-specific fields accepted by add and edit.
type valueFlags struct {
	username string
	password string
	number   string
	expiry   string
	cvv      string
	title    string
	body     string
}

func (f *valueFlags) register(cmd *cobra.Command, t models.SecretType) {
	switch t {
	case models.SecretTypeWebLogin:
		cmd.Flags().StringVar(&f.username, "username", "", "username")
		cmd.Flags().StringVar(&f.password, "password", "", "password (\"-\" or empty to prompt)")
	case models.SecretTypeCreditCard:
		cmd.Flags().StringVar(&f.number, "number", "", "16-digit card number")
		cmd.Flags().StringVar(&f.expiry, "expiry", "", "expiry date ("+secrets.ExpiryDateLayout+")")
		cmd.Flags().StringVar(&f.cvv, "cvv", "", "3-digit CVV (\"-\" or empty to prompt)")
	case models.SecretTypeSecureNote:
		cmd.Flags().StringVar(&f.title, "title", "", "note title")
		cmd.Flags().StringVar(&f.body, "body", "", "note body (\"-\" or empty to prompt)")
	}
}

// fill returns the value for t, starting from current and asking for
// whatever the flags leave empty. Sensitive fields are read without echo.
func (f *valueFlags) fill(p *prompter, t models.SecretType, current secrets.Value, ask bool) (secrets.Value, error) {
	var err error
	field := func(flag *string, keep string, read func() (string, error)) {
		if err != nil {
			return
		}
		switch {
		case *flag != "" && *flag != promptValue:
		case *flag == "" && !ask:
			*flag = keep
		default:
			*flag, err = read()
		}
	}
	line := func(prompt string) func() (string, error) {
		return func() (string, error) { return p.Line(prompt) }
	}
	hidden := func(prompt string) func() (string, error) {
		return func() (string, error) { return p.Hidden(prompt) }
	}

	switch t {
	case models.SecretTypeWebLogin:
		cur, _ := current.(secrets.WebLogin)
		field(&f.username, cur.Username, line("Username"))
		field(&f.password, cur.Password, hidden("Password"))
		return secrets.WebLogin{Username: f.username, Password: f.password}, err
	case models.SecretTypeCreditCard:
		cur, _ := current.(secrets.CreditCard)
		field(&f.number, cur.CardNumber, line("Card number"))
		field(&f.expiry, cur.ExpiryDate, line("Expiry date ("+secrets.ExpiryDateLayout+")"))
		field(&f.cvv, cur.CVV, hidden("CVV"))
		return secrets.CreditCard{CardNumber: f.number, ExpiryDate: f.expiry, CVV: f.cvv}, err
	case models.SecretTypeSecureNote:
		cur, _ := current.(secrets.SecureNote)
		field(&f.title, cur.Title, line("Title"))
		field(&f.body, cur.Body, func() (string, error) { return p.Multiline("Body") })
		return secrets.SecureNote{Title: f.title, Body: f.body}, err
	}
	return nil, fmt.Errorf("unknown secret type %q", t)
}

func (a *app) newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a personal secret",
	}
	cmd.AddCommand(
		a.newAddTypeCmd("login", "Add a web login", models.SecretTypeWebLogin),
		a.newAddTypeCmd("card", "Add a credit card", models.SecretTypeCreditCard),
		a.newAddTypeCmd("note", "Add a secure note", models.SecretTypeSecureNote),
	)
	return cmd
}

func (a *app) newAddTypeCmd(use, short string, t models.SecretType) *cobra.Command {
	var (
		name  string
		flags valueFlags
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireOrganization(ctx); err != nil {
				return err
			}

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			cred, err := a.credential(p)
			if err != nil {
				return err
			}

			if name, err = p.LineOr(name, "Name"); err != nil {
				return err
			}
			value, err := flags.fill(p, t, nil, true)
			if err != nil {
				return err
			}

			stop := a.spin(cmd, "Saving...")
			id, err := a.manager().Add(ctx, cred, name, value)
			stop()
			if err != nil {
				return fmt.Errorf("failed to add secret: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), successText.Sprintf("Added %s (%s)", name, id))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (5 to 100 characters)")
	flags.register(cmd, t)
	return cmd
}

func (a *app) newListCmd() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your personal secrets in the current organization",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.requireOrganization(ctx); err != nil {
				return err
			}

			cred, err := a.credential(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			stop := a.spin(cmd, "Loading secrets...")
			list, err := a.manager().List(ctx, cred)
			stop()
			if err != nil {
				return err
			}

			list = secrets.Filter(list, search)
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, warningText.Sprintf("No personal secrets found"))
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tNAME\tUPDATED")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, typeLabel(s.Type), s.Name, s.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive filter on name, value and type")
	return cmd
}

func (a *app) newShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one personal secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireOrganization(ctx); err != nil {
				return err
			}

			cred, err := a.credential(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			stop := a.spin(cmd, "Loading secret...")
			secret, err := a.manager().Get(ctx, cred, id)
			stop()
			if err != nil {
				return notFoundHint(err)
			}

			return printSecret(cmd.OutOrStdout(), secret, reveal)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print passwords, card numbers and CVVs in clear")
	return cmd
}

func (a *app) newEditCmd() *cobra.Command {
	var (
		name  string
		flags valueFlags
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a personal secret",
		Long: "Changes the fields given as flags and keeps the rest. Pass \"-\" as a\n" +
			"field value to be prompted for it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireOrganization(ctx); err != nil {
				return err
			}

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			cred, err := a.credential(p)
			if err != nil {
				return err
			}

			mgr := a.manager()
			existing, err := mgr.Get(ctx, cred, id)
			if err != nil {
				return notFoundHint(err)
			}

			current, err := existing.Decoded()
			if err != nil {
				return err
			}

			if name == promptValue {
				if name, err = p.Line("Name"); err != nil {
					return err
				}
			} else if name == "" {
				name = existing.Name
			}

			value, err := flags.fill(p, existing.Type, current, false)
			if err != nil {
				return err
			}

			stop := a.spin(cmd, "Saving...")
			updated, err := mgr.Update(ctx, cred, existing, name, value)
			stop()
			if err != nil {
				return fmt.Errorf("failed to update secret: %w", notFoundHint(err))
			}

			fmt.Fprintln(cmd.OutOrStdout(), successText.Sprintf("Updated %s", updated.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new display name")
	for _, t := range []models.SecretType{models.SecretTypeWebLogin, models.SecretTypeCreditCard, models.SecretTypeSecureNote} {
		flags.register(cmd, t)
	}
	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a personal secret",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.requireOrganization(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !yes {
				ok, err := newPrompter(cmd.InOrStdin(), out).Confirm(fmt.Sprintf("Delete personal secret %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Cancelled")
					return nil
				}
			}

			stop := a.spin(cmd, "Deleting...")
			err = a.manager().Delete(ctx, id)
			stop()
			if err != nil {
				return notFoundHint(err)
			}

			fmt.Fprintln(out, successText.Sprintf("Deleted %s", id))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid secret id %q", s)
	}
	return id, nil
}

func notFoundHint(err error) error {
	if errors.Is(err, client.ErrNotFound) {
		return errors.New("personal secret not found in the current organization")
	}
	return err
}

func typeLabel(t models.SecretType) string {
	switch t {
	case models.SecretTypeWebLogin:
		return "login"
	case models.SecretTypeCreditCard:
		return "card"
	case models.SecretTypeSecureNote:
		return "note"
	}
	return strings.ToLower(string(t))
}

func mask(s string, reveal bool) string {
	if reveal {
		return s
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func printSecret(w io.Writer, s *secrets.Secret, reveal bool) error {
	value, err := s.Decoded()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, boldText.Sprintf("%s", s.Name))
	fmt.Fprintf(w, "  id:       %s\n", s.ID)
	fmt.Fprintf(w, "  type:     %s\n", typeLabel(s.Type))

	switch v := value.(type) {
	case secrets.WebLogin:
		fmt.Fprintf(w, "  username: %s\n", v.Username)
		fmt.Fprintf(w, "  password: %s\n", mask(v.Password, reveal))
	case secrets.CreditCard:
		fmt.Fprintf(w, "  number:   %s\n", mask(v.CardNumber, reveal))
		fmt.Fprintf(w, "  expiry:   %s\n", v.ExpiryDate)
		fmt.Fprintf(w, "  cvv:      %s\n", mask(v.CVV, reveal))
	case secrets.SecureNote:
		fmt.Fprintf(w, "  title:    %s\n", v.Title)
		fmt.Fprintf(w, "  body:\n")
		for _, line := range strings.Split(v.Body, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	fmt.Fprintf(w, "  updated:  %s\n", s.UpdatedAt.Local().Format(time.DateTime))
	return nil
}
