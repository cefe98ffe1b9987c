package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/hyperkit/internal/container"
)

var (
	migrateMove        bool
	migrateArch        string
	migrateProfiles    []string
	migrateEphemeral   bool
	migrateCertificate string
	migrateConfig      []string
)

func init() {
	f := migrateCmd.Flags()
	f.BoolVar(&migrateMove, "move", false, "keep volatile keys and delete the source once the target exists")
	f.StringVar(&migrateArch, "architecture", "", "architecture override")
	f.StringSliceVarP(&migrateProfiles, "profile", "p", nil, "profiles override")
	f.BoolVar(&migrateEphemeral, "ephemeral", false, "ephemeral override")
	f.StringVar(&migrateCertificate, "certificate", "", "PEM certificate the target pins instead of the source's")
	f.StringArrayVarP(&migrateConfig, "config", "c", nil, "config KEY=VALUE replacing the source's config entirely (repeatable)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate SOURCE_REMOTE:NAME [[TARGET_REMOTE:]NEW_NAME]",
	Short: "Copy or move a container between remotes",
	Long: `Copy a container from one remote to another.

The source remote prepares a migration operation and the target pulls the
container from it. Profiles the new container needs must already exist on
the target; missing ones are reported before anything is submitted.

With --move the volatile keys are carried over and the source container is
deleted after the target has been created. Without it the copy gets a new
identity.

The target defaults to the same name on --remote (or the default remote).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		srcRemote, srcName, err := target(args[0])
		if err != nil {
			return err
		}
		dstRemote, dstName := remoteName, srcName
		if len(args) == 2 {
			if dstRemote, dstName, err = target(args[1]); err != nil {
				return err
			}
		}

		config, err := parseKeyValues(migrateConfig)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		src, err := connect(ctx, srcRemote)
		if err != nil {
			return err
		}
		defer src.close()

		dst, err := connect(ctx, dstRemote)
		if err != nil {
			return err
		}
		defer dst.close()

		fmt.Printf("Migrating %s:%s to %s:%s\n", src.remote, srcName, dst.remote, dstName)

		// Step 1: Prepare the source
		ms, err := src.manager.InitMigration(ctx, srcName)
		if err != nil {
			return err
		}

		// Step 2: Pull it from the target
		opts := container.MigrateOptions{
			Architecture: migrateArch,
			Profiles:     migrateProfiles,
			Certificate:  migrateCertificate,
			Config:       toAny(config),
			Move:         migrateMove,
		}
		if cmd.Flags().Changed("ephemeral") {
			opts.Ephemeral = &migrateEphemeral
		}

		h, err := dst.manager.Migrate(ctx, ms, dstName, opts)
		if err != nil {
			return err
		}
		if noWait {
			fmt.Printf("Operation: %s\n", h.ID)
			return nil
		}
		if _, err := dst.manager.Wait(ctx, h); err != nil {
			return fmt.Errorf("failed to migrate container %s: %w", srcName, err)
		}
		fmt.Printf("✓ Container %s created on %s\n", dstName, dst.remote)

		if !migrateMove {
			return nil
		}

		// Step 3: Remove the source
		dh, err := src.manager.Delete(ctx, srcName)
		if err != nil {
			return err
		}
		if _, err := src.manager.Wait(ctx, dh); err != nil {
			return fmt.Errorf("container was copied but the source could not be deleted: %w", err)
		}
		fmt.Printf("✓ Container %s deleted from %s\n", srcName, src.remote)
		return nil
	},
}
