package main

import (
	"fmt"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd(opts *rootOptions) *cobra.Command {
	var msg accounts.RegisterAccountMessage

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account and send its confirmation link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *App) error {
				account, err := app.service.Register(cmd.Context(), msg)
				if err != nil {
					return err
				}
				printJSON(cmd, account)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&msg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&msg.Password, "password", "", "account password")
	cmd.Flags().StringVar(&msg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&msg.LastName, "last-name", "", "last name")
	return cmd
}

// NewConfirmCmd creates the confirm subcommand.
func NewConfirmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm TOKEN",
		Short: "Confirm an account email with its token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(app *App) error {
				account, err := app.service.ConfirmEmail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printJSON(cmd, account)
				return nil
			})
		},
	}
}

// NewReissueCmd creates the reissue subcommand.
func NewReissueCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reissue EMAIL",
		Short: "Send a fresh confirmation link to an unconfirmed account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(app *App) error {
				return app.service.ReissueConfirmation(cmd.Context(), args[0])
			})
		},
	}
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify credentials and print a session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *App) error {
				token, err := app.service.Login(cmd.Context(), email, password, stderrCookieWriter(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

// NewGetCmd creates the get subcommand.
func NewGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(app *App) error {
				account, err := app.service.GetAccount(cmd.Context(), id)
				if err != nil {
					return err
				}
				printJSON(cmd, account)
				return nil
			})
		},
	}
}

// NewListCmd creates the list subcommand.
func NewListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *App) error {
				records, err := app.service.ListAccounts(cmd.Context())
				if err != nil {
					return err
				}
				printJSON(cmd, records)
				return nil
			})
		},
	}
}

// NewUpdateCmd creates the update subcommand. Only flags that are set
// end up in the patch.
func NewUpdateCmd(opts *rootOptions) *cobra.Command {
	var first, last, email string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change account names or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}

			var patch accounts.AccountPatch
			if cmd.Flags().Changed("first-name") {
				patch.FirstName = &first
			}
			if cmd.Flags().Changed("last-name") {
				patch.LastName = &last
			}
			if cmd.Flags().Changed("email") {
				patch.Email = &email
			}

			return withApp(cmd, opts, func(app *App) error {
				account, err := app.service.UpdateAccount(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				printJSON(cmd, account)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&first, "first-name", "", "first name")
	cmd.Flags().StringVar(&last, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email, only before confirmation")
	return cmd
}

// NewDeleteCmd creates the delete subcommand. The account is taken from
// the session token, never from an id.
func NewDeleteCmd(opts *rootOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account that owns a session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *App) error {
				session, err := app.service.SessionFromToken(token)
				if err != nil {
					return err
				}
				account, err := app.service.DeleteAccount(cmd.Context(), session, stderrCookieWriter(cmd))
				if err != nil {
					return err
				}
				printJSON(cmd, account)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "session token from login")
	return cmd
}

// NewPasswdCmd creates the passwd subcommand.
func NewPasswdCmd(opts *rootOptions) *cobra.Command {
	var token, current, next string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the session owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *App) error {
				session, err := app.service.SessionFromToken(token)
				if err != nil {
					return err
				}
				return app.service.ChangePassword(cmd.Context(), session, current, next)
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "session token from login")
	cmd.Flags().StringVar(&current, "current", "", "current password")
	cmd.Flags().StringVar(&next, "new", "", "new password")
	return cmd
}

func parseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, accounts.NewValidationError("invalid account id", map[string]any{"id": raw})
	}
	return id, nil
}
