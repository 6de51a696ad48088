package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "deltawind",
	Short: "Delta Wind Farm case study interviews",
	Long: `deltawind lets a student interview the Delta Wind Farm stakeholders,
played by a completion model, and generate briefings from the case facts.

Configuration comes from the environment and optional dotenv files
(DELTAWIND_PROVIDER, DELTAWIND_MODEL, OPENAI_API_KEY, ...).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default: .env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(personasCmd)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.OpBold).Render("Error:"), err)
		os.Exit(1)
	}
}

// run owns the signal context so deferred cleanup in commands always runs.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}
