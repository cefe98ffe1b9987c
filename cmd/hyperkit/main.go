package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Global flags
var (
	remoteName      string
	configPath      string
	logLevel        string
	logFormat       string
	outputFormat    string
	noHeaders       bool
	noWait          bool
	metricsTextfile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// Metrics are written for failed commands too.
	if merr := writeMetrics(); merr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", merr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hyperkit",
	Short: "Hyperkit - container management client",
	Long: `Hyperkit is a CLI for managing system containers on one or more
container servers over their REST API.

Containers can be created from images, copied, driven through their
lifecycle and migrated between servers. Manifests describe containers
declaratively in YAML.`,
	Version:           fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&remoteName, "remote", "", "remote to talk to (default from config)")
	flags.StringVar(&configPath, "config-file", "", "path to the config file (default "+defaultConfigHint()+")")
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json")
	flags.StringVarP(&outputFormat, "output", "o", "table", "output format: table, yaml, json")
	flags.BoolVar(&noHeaders, "no-headers", false, "omit headers in table output")
	flags.BoolVar(&noWait, "no-wait", false, "print the operation ID instead of waiting for it")
	flags.StringVar(&metricsTextfile, "metrics-textfile", "", "write operation metrics to this file on exit")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(copyCmd)
	for _, cmd := range lifecycleCmds() {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(remoteCmd)
}
