// Command clientpulse segments a client contract export into churn-risk,
// upsell and regular clients and reports the customer-success metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	// Register source providers.
	_ "github.com/crimson-sun/clientpulse/internal/source/csvfile"
	_ "github.com/crimson-sun/clientpulse/internal/source/demo"
	_ "github.com/crimson-sun/clientpulse/internal/source/remote"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "clientpulse:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "clientpulse",
		Short: "Customer-success analytics over client contract exports",
		Long: `clientpulse reads a contract export (CSV file, URL or synthetic demo data),
reconciles its column names, scores client satisfaction, assigns every client
to Regular, ChurnRisk or UpsellPotential and reports the summary metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("CLIENTPULSE_CONFIG"), "YAML config file (default clientpulse.yaml if present)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newReportCmd(g))
	root.AddCommand(newServeCmd(g))
	root.AddCommand(newWatchCmd(g))
	root.AddCommand(newDemoCmd())
	return root
}
