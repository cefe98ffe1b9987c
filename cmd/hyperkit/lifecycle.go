package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/hyperkit/internal/container"
)

var lifecycleShort = map[container.Action]string{
	container.ActionStart:    "Start containers",
	container.ActionStop:     "Stop containers",
	container.ActionRestart:  "Restart containers",
	container.ActionFreeze:   "Freeze containers",
	container.ActionUnfreeze: "Unfreeze containers",
}

var lifecyclePast = map[container.Action]string{
	container.ActionStart:    "started",
	container.ActionStop:     "stopped",
	container.ActionRestart:  "restarted",
	container.ActionFreeze:   "frozen",
	container.ActionUnfreeze: "unfrozen",
}

// lifecycleCmds builds one command per lifecycle action. They share flags
// and behavior and differ only in the action sent to the server.
func lifecycleCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(container.Actions))
	for _, action := range container.Actions {
		cmds = append(cmds, newLifecycleCmd(action))
	}
	return cmds
}

func newLifecycleCmd(action container.Action) *cobra.Command {
	var (
		timeout  int
		force    bool
		stateful bool
	)

	cmd := &cobra.Command{
		Use:   string(action) + " [REMOTE:]NAME...",
		Short: lifecycleShort[action],
		Long: fmt.Sprintf(`%s.

The server decides whether the transition is legal; for example starting a
running container fails. With several names the actions run concurrently
and every failure is reported.`, lifecycleShort[action]),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := container.StateOptions{Timeout: timeout, Force: force, Stateful: stateful}

			byRemote, order, err := groupByRemote(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var errs []error
			for _, remote := range order {
				names := byRemote[remote]

				s, err := connect(ctx, remote)
				if err != nil {
					return err
				}

				if noWait {
					for _, name := range names {
						h, err := s.manager.SubmitAction(ctx, name, action, opts)
						if err != nil {
							s.close()
							return err
						}
						fmt.Printf("Operation: %s (%s)\n", h.ID, name)
					}
					s.close()
					continue
				}

				err = s.manager.ApplyAll(ctx, names, action, opts)
				s.close()
				if err != nil {
					errs = append(errs, err)
					continue
				}
				for _, name := range names {
					fmt.Printf("✓ Container %s %s\n", name, lifecyclePast[action])
				}
			}

			return errors.Join(errs...)
		},
	}

	cmd.Flags().IntVar(&timeout, "timeout", 0, "seconds the server waits for a graceful transition")
	cmd.Flags().BoolVar(&force, "force", false, "skip the graceful shutdown")
	cmd.Flags().BoolVar(&stateful, "stateful", false, "preserve process state")
	return cmd
}

// groupByRemote splits [REMOTE:]NAME arguments by remote, keeping the
// order remotes first appear in.
func groupByRemote(args []string) (map[string][]string, []string, error) {
	byRemote := make(map[string][]string)
	var order []string
	for _, arg := range args {
		remote, name, err := target(arg)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := byRemote[remote]; !seen {
			order = append(order, remote)
		}
		byRemote[remote] = append(byRemote[remote], name)
	}
	return byRemote, order, nil
}
