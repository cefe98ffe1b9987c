package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Inspect configured remotes",
	Long: `Inspect the remotes defined in the config file.

The local remote on the default unix socket is always available.`,
}

func init() {
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remoteTestCmd)
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured remotes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range cfg.RemoteNames() {
			marker := " "
			if name == cfg.DefaultRemote {
				marker = "*"
			}
			fmt.Printf("%s %-16s %s\n", marker, name, cfg.Remotes[name].Address)
		}
		return nil
	},
}

var remoteTestCmd = &cobra.Command{
	Use:   "test [REMOTE]",
	Short: "Test the connection to a remote",
	Long: `Test the connection to a remote.

Connects, reads the server information and lists profiles to confirm the
client certificate is trusted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := remoteName
		if len(args) == 1 {
			remote = remoteArg(args[0])
		}

		ctx := cmd.Context()
		s, err := connect(ctx, remote)
		if err != nil {
			return err
		}
		defer s.close()

		fmt.Printf("✓ Connected to %s (%s)\n", s.remote, s.client.Address())

		info, err := s.client.ServerInfo(ctx)
		if err != nil {
			return fmt.Errorf("failed to read server info: %w", err)
		}
		fmt.Printf("✓ API version: %s\n", info.APIVersion)
		fmt.Printf("✓ Auth: %s\n", info.Auth)
		if len(info.APIExtensions) > 0 {
			fmt.Printf("  Extensions: %s\n", strings.Join(info.APIExtensions, ", "))
		}

		profiles, err := s.manager.Profiles(ctx)
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}
		fmt.Printf("✓ Profiles: %d\n", len(profiles))
		return nil
	},
}
