package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/naming"
)

// target splits a REMOTE:NAME argument. Without a prefix the --remote flag
// (or the default remote) is used.
func target(ref string) (remote, name string, err error) {
	remote, name = naming.SplitRemote(ref)
	if remote == "" {
		remote = remoteName
	}
	if err := naming.ValidateContainerName(name); err != nil {
		return "", "", err
	}
	return remote, name, nil
}

var listCmd = &cobra.Command{
	Use:   "list [REMOTE:]",
	Short: "List containers",
	Long: `List all containers on a remote.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   Container manifests, one document each
  -o json   A ContainerList object`,
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

		names, err := s.manager.List(ctx)
		if err != nil {
			return err
		}

		containers := make([]*v1alpha1.Container, 0, len(names))
		for _, name := range names {
			c, err := s.manager.Describe(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to describe container %s: %w", name, err)
			}
			containers = append(containers, c)
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		result, err := formatter.FormatContainerList(containers)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [REMOTE:]NAME",
	Short: "Get details about a container",
	Long: `Get detailed information about a specific container.

Displays the container as a manifest including spec and status. Containers
created from a manifest keep it in their config, so the spec shown is the
one they were created with.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   Full YAML manifest
  -o json   Full JSON manifest`,
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

		c, err := s.manager.Describe(ctx, name)
		if err != nil {
			return err
		}

		formatter, err := newFormatter()
		if err != nil {
			return err
		}
		result, err := formatter.FormatContainer(c)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state [REMOTE:]NAME",
	Short: "Show the runtime state of a container",
	Args:  cobra.ExactArgs(1),
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

		state, err := s.manager.State(ctx, name)
		if err != nil {
			return err
		}

		fmt.Printf("Name:        %s\n", name)
		fmt.Printf("Status:      %s\n", state.Status)
		fmt.Printf("Status code: %d\n", state.StatusCode)
		if state.Pid != 0 {
			fmt.Printf("Pid:         %d\n", state.Pid)
		}
		return nil
	},
}

var profilesCmd = &cobra.Command{
	Use:   "profiles [REMOTE:]",
	Short: "List the profiles known to a remote",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote := remoteName
		if len(args) == 1 {
			remote = remoteArg(args[0])
		}
		return listProfiles(cmd.Context(), remote)
	},
}

// remoteArg accepts "name" or "name:".
func remoteArg(arg string) string {
	if remote, _ := naming.SplitRemote(arg); remote != "" {
		return remote
	}
	return arg
}

func listProfiles(ctx context.Context, remote string) error {
	s, err := connect(ctx, remote)
	if err != nil {
		return err
	}
	defer s.close()

	profiles, err := s.manager.Profiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles found")
		return nil
	}
	for _, p := range profiles {
		fmt.Println(p)
	}
	return nil
}
