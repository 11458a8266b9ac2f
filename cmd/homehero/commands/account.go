package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/homehero/internal/preferences"
	"github.com/benvon/homehero/internal/validation"
)

const passwordEnv = "HOMEHERO_PASSWORD"

func newRegisterCmd(g *globalFlags) *cobra.Command {
	var form validation.RegisterForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readSecret(cmd, form.Password, passwordEnv, "Password: ")
			if err != nil {
				return err
			}
			form.Password = password
			if form.ConfirmPassword == "" {
				form.ConfirmPassword, err = readSecret(cmd, "", "HOMEHERO_CONFIRM_PASSWORD", "Confirm password: ")
				if err != nil {
					return err
				}
			}
			return run(cmd, g, func(ctx context.Context, a *app) error {
				if _, err := a.pages.Register(ctx, form); err != nil {
					return err
				}
				a.out.Success("Registration successful!")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "Your name (required)")
	cmd.Flags().StringVar(&form.Email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&form.PhotoURL, "photo", "", "Photo URL")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password (prompted when unset)")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm-password", "", "Password again (prompted when unset)")
	return cmd
}

func newLoginCmd(g *globalFlags) *cobra.Command {
	var form validation.LoginForm
	var google bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or with Google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !google {
				password, err := readSecret(cmd, form.Password, passwordEnv, "Password: ")
				if err != nil {
					return err
				}
				form.Password = password
			}
			return run(cmd, g, func(ctx context.Context, a *app) error {
				var err error
				if google {
					_, err = a.pages.LoginWithGoogle(ctx)
				} else {
					_, err = a.pages.Login(ctx, form)
				}
				if err != nil {
					return err
				}
				a.out.Success("Login successful!")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "Password (prompted when unset)")
	cmd.Flags().BoolVar(&google, "google", false, "Sign in with Google in the browser")
	return cmd
}

func newLogoutCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				if err := a.pages.Logout(ctx); err != nil {
					return err
				}
				a.out.Success("Logged out")
				return nil
			})
		},
	}
}

func newForgotPasswordCmd(g *globalFlags) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				if err := a.pages.ForgotPassword(ctx, email); err != nil {
					return err
				}
				a.out.Success("Password reset email sent! Check your inbox.")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	return cmd
}

func newProfileCmd(g *globalFlags) *cobra.Command {
	var form validation.ProfileForm

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile, or change it with --name and --photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				flags := cmd.Flags()
				if flags.Changed("name") || flags.Changed("photo") {
					current, err := a.pages.Profile()
					if err != nil {
						return err
					}
					if !flags.Changed("name") {
						form.DisplayName = current.DisplayName
					}
					if !flags.Changed("photo") {
						form.PhotoURL = current.PhotoURL
					}
					if err := a.pages.UpdateProfile(ctx, form); err != nil {
						return err
					}
					a.out.Success("Profile updated successfully!")
				}
				view, err := a.pages.Profile()
				if err != nil {
					return err
				}
				a.out.Profile(view)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.DisplayName, "name", "", "New display name")
	cmd.Flags().StringVar(&form.PhotoURL, "photo", "", "New photo URL")
	return cmd
}

func newWhoAmICmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				a.out.Session(a.session.Current())
				return nil
			})
		},
	}
}

func newThemeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle|light|dark]",
		Short:     "Show or change the colour theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"toggle", "light", "dark"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, a *app) error {
				var (
					theme preferences.Theme
					err   error
				)
				switch {
				case len(args) == 0:
					theme, err = a.themes.Current(ctx)
				case args[0] == "toggle":
					theme, err = a.themes.Toggle(ctx)
				default:
					theme, err = preferences.ParseTheme(args[0])
					if err == nil {
						err = a.themes.Set(ctx, theme)
					}
				}
				if err != nil {
					return err
				}
				a.out.Success(fmt.Sprintf("Theme: %s", theme))
				return nil
			})
		},
	}
}
