package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	provider := &appProvider{}

	rootCmd := &cobra.Command{
		Use:           "calsnap",
		Short:         "calsnap: turn text, pages and images into calendar events",
		Long:          "calsnap submits content to the event extraction service, polls each session in the background until it settles, and keeps a badge and desktop notifications in sync with the outcome.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return provider.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&provider.configFile, "config", "", "Config file (default: $HOME/.config/calsnap/config.toml)")
	rootCmd.PersistentFlags().StringVar(&provider.storeBackend, "store", "", "Override store.backend (file|redis|memory)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newAuthCmd(provider),
		newSubmitCmd(provider),
		newSessionsCmd(provider),
		newDismissCmd(provider),
		newPushCmd(provider),
		newBadgeCmd(provider),
		newWatchCmd(provider),
		newDaemonCmd(provider),
	)

	return rootCmd
}
