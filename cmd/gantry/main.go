package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	controllerAddr string
	token          string
	outputFormat   string
	requestTimeout time.Duration
	insecure       bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gantry",
		Short:         "Gantry game server control plane CLI",
		Long:          `Gantry creates game servers on hosting panels through a central controller.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultAddr := "http://localhost:51067"
	if env := os.Getenv("GANTRY_CONTROLLER"); env != "" {
		defaultAddr = env
	}

	root.PersistentFlags().StringVar(&controllerAddr, "controller", defaultAddr, "Controller address (env: GANTRY_CONTROLLER)")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("GANTRY_TOKEN"), "Bearer token (env: GANTRY_TOKEN)")
	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	root.PersistentFlags().DurationVar(&requestTimeout, "timeout", 30*time.Second, "Timeout for each controller request")
	root.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")

	root.AddCommand(versionCmd())
	root.AddCommand(nodesCmd())
	root.AddCommand(serversCmd())
	return root
}
