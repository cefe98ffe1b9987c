package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateConfig []string

func init() {
	updateCmd.Flags().StringArrayVarP(&updateConfig, "config", "c", nil, "config KEY=VALUE to set, or KEY= to remove (repeatable)")
	_ = updateCmd.MarkFlagRequired("config")
}

var updateCmd = &cobra.Command{
	Use:   "update [REMOTE:]NAME -c KEY=VALUE...",
	Short: "Change a container's config",
	Long: `Merge config keys into a container's config.

KEY=VALUE sets a key and KEY= removes it. All other keys, devices and
profiles are left as they are.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, name, err := target(args[0])
		if err != nil {
			return err
		}
		values, err := parseConfigUpdates(updateConfig)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := connect(ctx, remote)
		if err != nil {
			return err
		}
		defer s.close()

		h, err := s.manager.SetConfig(ctx, name, values)
		if err != nil {
			return err
		}
		return s.finish(ctx, h, fmt.Sprintf("Container %s updated", name))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [REMOTE:]NAME",
	Short: "Delete a stopped container",
	Long: `Delete a container and its root filesystem.

The server refuses to delete running containers; stop them first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, name, err := target(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := connect(ctx, remote)
		if err != nil {
			return err
		}
		defer s.close()

		h, err := s.manager.Delete(ctx, name)
		if err != nil {
			return err
		}
		return s.finish(ctx, h, fmt.Sprintf("Container %s deleted", name))
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename [REMOTE:]NAME NEW_NAME",
	Short: "Rename a stopped container",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, name, err := target(args[0])
		if err != nil {
			return err
		}
		newRemote, newName, err := target(args[1])
		if err != nil {
			return err
		}
		if newRemote != remote {
			return fmt.Errorf("rename works within one remote; use migrate --move to move %s to %s", name, newRemote)
		}

		ctx := cmd.Context()
		s, err := connect(ctx, remote)
		if err != nil {
			return err
		}
		defer s.close()

		h, err := s.manager.Rename(ctx, name, newName)
		if err != nil {
			return err
		}
		return s.finish(ctx, h, fmt.Sprintf("Container %s renamed to %s", name, newName))
	},
}

var waitCmd = &cobra.Command{
	Use:   "wait OPERATION_ID",
	Short: "Wait for an operation to finish",
	Long: `Wait for a server operation to reach a terminal state and print it.

Commands run with --no-wait print the ID of the operation they submitted.
The wait is bounded by operations.timeout from the config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := connect(ctx, remoteName)
		if err != nil {
			return err
		}
		defer s.close()

		op, err := s.manager.WaitID(ctx, args[0])
		if err != nil {
			return err
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		result, err := formatter.FormatOperation(op)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		fmt.Print(result)
		return nil
	},
}
