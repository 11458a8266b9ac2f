// Package commands is the homehero command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benvon/homehero/internal/pages"
)

type globalFlags struct {
	debug   bool
	noColor bool
}

// NewRootCmd creates the homehero command
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "homehero",
		Short:         "HomeHero home-services marketplace client",
		Long:          "Browse and book home services, manage your own listings and leave reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(
		newHomeCmd(g),
		newServicesCmd(g),
		newServiceCmd(g),
		newBookCmd(g),
		newMyServicesCmd(g),
		newAddServiceCmd(g),
		newUpdateServiceCmd(g),
		newDeleteServiceCmd(g),
		newBookingsCmd(g),
		newCancelCmd(g),
		newReviewCmd(g),
		newRegisterCmd(g),
		newLoginCmd(g),
		newLogoutCmd(g),
		newForgotPasswordCmd(g),
		newProfileCmd(g),
		newWhoAmICmd(g),
		newThemeCmd(g),
	)
	return rootCmd
}

// run opens the client, runs fn and closes the client. Page failures are
// reported with their user-facing message.
func run(cmd *cobra.Command, g *globalFlags, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, g, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		var f *pages.Failure
		if errors.As(err, &f) {
			return errors.New(f.Message)
		}
		return err
	}
	return nil
}

// readSecret returns flagValue, the environment variable env, or a line
// read from stdin, in that order.
func readSecret(cmd *cobra.Command, flagValue, env, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	var line string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &line); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", prompt, err)
	}
	return line, nil
}
