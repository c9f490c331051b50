package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vaultai/internal/bootstrap"
)

var (
	configPath string
	backendURL string

	client *bootstrap.ClientApp
)

var rootCmd = &cobra.Command{
	Use:   "vaultai",
	Short: "Ask questions about your documents, recordings and images",
	Long: `vaultai uploads files to an answering backend and lets you ask
questions about them. Answers stream in with numbered citations that open
the cited page, excerpt, image or audio segment.

Run without arguments to start the interactive session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		client, err = bootstrap.NewClient(configPath, backendURL, cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("failed to initialize client: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if client != nil {
			_ = client.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return newREPL(client, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $CONFIG_FILE or configs/config.toml)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "backend base URL")

	rootCmd.AddCommand(askCmd, uploadCmd, filesCmd, removeCmd, clearCmd, infoCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
