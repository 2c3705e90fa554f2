package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/calsnap/internal/domain"
)

func newAuthCmd(provider *appProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the API credential",
	}

	cmd.AddCommand(newAuthSetCmd(provider), newAuthClearCmd(provider), newAuthStatusCmd(provider))

	return cmd
}

func newAuthSetCmd(provider *appProvider) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the API token (reads stdin when --token is omitted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
				if err != nil {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				token = strings.TrimSpace(string(data))
			}

			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}
			return app.guard.Set(cmd.Context(), token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token")

	return cmd
}

func newAuthClearCmd(provider *appProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}
			return app.guard.Invalidate(cmd.Context())
		},
	}
}

func newAuthStatusCmd(provider *appProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a usable API token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := provider.get(cmd, wireOptions{})
			if err != nil {
				return err
			}

			err = app.guard.Check(cmd.Context())
			switch {
			case err == nil:
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "authenticated")
				return err
			case errors.Is(err, domain.ErrAuthenticationRequired):
				if _, werr := fmt.Fprintf(cmd.OutOrStdout(), "not authenticated: %v\n", err); werr != nil {
					return werr
				}
				return err
			default:
				return err
			}
		},
	}
}
