package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/hyperkit/api/v1alpha1"
	"github.com/jbweber/hyperkit/internal/container"
	"github.com/jbweber/hyperkit/internal/loader"
	"github.com/jbweber/hyperkit/internal/source"
	"github.com/jbweber/hyperkit/internal/status"
)

// create flags
var (
	createFile        string
	createSave        string
	createStart       bool
	createImage       string
	createFingerprint string
	createProperties  []string
	createEmpty       bool
	createServer      string
	createProtocol    string
	createSecret      string
	createCertificate string
	createArch        string
	createProfiles    []string
	createEphemeral   bool
	createConfig      []string
)

// copy flags
var (
	copyArch      string
	copyProfiles  []string
	copyEphemeral bool
	copyConfig    []string
)

func init() {
	f := createCmd.Flags()
	f.StringVarP(&createFile, "file", "f", "", "create from a Container manifest")
	f.StringVar(&createSave, "save", "", "write the manifest with its final status to this path")
	f.BoolVar(&createStart, "start", false, "start the container once it is created")
	f.StringVar(&createImage, "alias", "", "image alias")
	f.StringVar(&createFingerprint, "fingerprint", "", "image fingerprint")
	f.StringArrayVar(&createProperties, "property", nil, "image property KEY=VALUE (repeatable)")
	f.BoolVar(&createEmpty, "empty", false, "create without a root filesystem")
	f.StringVar(&createServer, "server", "", "image server to pull from")
	f.StringVar(&createProtocol, "protocol", "", "image server protocol: lxd or simplestreams")
	f.StringVar(&createSecret, "secret", "", "secret for a private image")
	f.StringVar(&createCertificate, "certificate", "", "PEM certificate of the image server")
	f.StringVar(&createArch, "architecture", "", "architecture")
	f.StringSliceVarP(&createProfiles, "profile", "p", nil, "profiles to apply (default: default)")
	f.BoolVar(&createEphemeral, "ephemeral", false, "delete the container when it stops")
	f.StringArrayVarP(&createConfig, "config", "c", nil, "config KEY=VALUE (repeatable)")

	f = copyCmd.Flags()
	f.StringVar(&copyArch, "architecture", "", "architecture override")
	f.StringSliceVarP(&copyProfiles, "profile", "p", nil, "profiles override")
	f.BoolVar(&copyEphemeral, "ephemeral", false, "make the copy ephemeral")
	f.StringArrayVarP(&copyConfig, "config", "c", nil, "config KEY=VALUE merged over the source's (repeatable)")
}

var createCmd = &cobra.Command{
	Use:   "create [REMOTE:]NAME | -f manifest.yaml",
	Short: "Create a container",
	Long: `Create a container from an image, or with no root filesystem.

The source is chosen from the flags: --fingerprint wins over --alias, which
wins over --property. --empty conflicts with all three. Without --server the
image must already exist on the remote.

With -f, the container is created from a Container manifest instead. The
manifest is stored in the container's config and cloud-init data is
rendered into user.user-data and user.meta-data. A NAME argument overrides
metadata.name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if createFile != "" {
			return createFromManifest(cmd, args)
		}
		if len(args) != 1 {
			return fmt.Errorf("a container name is required")
		}

		remote, name, err := target(args[0])
		if err != nil {
			return err
		}

		properties, err := parseKeyValues(createProperties)
		if err != nil {
			return err
		}
		config, err := parseKeyValues(createConfig)
		if err != nil {
			return err
		}

		src, err := source.Resolve(source.Options{
			Alias:       createImage,
			Fingerprint: createFingerprint,
			Properties:  properties,
			Empty:       createEmpty,
			Server:      createServer,
			Protocol:    createProtocol,
			Secret:      createSecret,
			Certificate: createCertificate,
		})
		if err != nil {
			return err
		}

		profiles := createProfiles
		if profiles == nil {
			profiles = []string{"default"}
		}

		ctx := cmd.Context()
		s, err := connect(ctx, remote)
		if err != nil {
			return err
		}
		defer s.close()

		fmt.Printf("Creating container %s\n", name)
		h, err := s.manager.Create(ctx, container.Spec{
			Name:         name,
			Architecture: createArch,
			Profiles:     profiles,
			Ephemeral:    createEphemeral,
			Config:       toAny(config),
			Source:       src,
		})
		if err != nil {
			return err
		}
		if noWait {
			fmt.Printf("Operation: %s\n", h.ID)
			return nil
		}
		if _, err := s.manager.Wait(ctx, h); err != nil {
			return fmt.Errorf("failed to create container %s: %w", name, err)
		}
		fmt.Printf("✓ Container %s created\n", name)

		if createStart {
			if err := s.manager.Start(ctx, name, container.StateOptions{}); err != nil {
				return err
			}
			fmt.Printf("✓ Container %s started\n", name)
		}
		return nil
	},
}

func createFromManifest(cmd *cobra.Command, args []string) error {
	c, err := loader.LoadFromFile(createFile)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	remote := remoteName
	if len(args) == 1 {
		var name string
		remote, name, err = target(args[0])
		if err != nil {
			return err
		}
		c.Name = name
	}

	ctx := cmd.Context()
	s, err := connect(ctx, remote)
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Printf("Creating container %s from %s\n", c.Name, createFile)
	h, err := s.manager.CreateFromManifest(ctx, c)
	if err != nil {
		saveManifest(c)
		return err
	}
	if noWait {
		fmt.Printf("Operation: %s\n", h.ID)
		saveManifest(c)
		return nil
	}

	if _, err := s.manager.Wait(ctx, h); err != nil {
		status.MarkFailed(c, err)
		saveManifest(c)
		return fmt.Errorf("failed to create container %s: %w", c.Name, err)
	}
	status.MarkCreated(c, h.ID)
	fmt.Printf("✓ Container %s created\n", c.Name)

	if createStart {
		if err := s.manager.Start(ctx, c.Name, container.StateOptions{}); err != nil {
			status.MarkFailed(c, err)
			saveManifest(c)
			return err
		}
		if err := status.TransitionAfterAction(c, string(container.ActionStart), ""); err != nil {
			return err
		}
		fmt.Printf("✓ Container %s started\n", c.Name)
	}

	saveManifest(c)
	return nil
}

func saveManifest(c *v1alpha1.Container) {
	if createSave == "" {
		return
	}
	if err := loader.SaveToFile(c, createSave); err != nil {
		logger.WithError(err).Warn("Failed to save manifest")
	}
}

var copyCmd = &cobra.Command{
	Use:   "copy [REMOTE:]SOURCE NAME",
	Short: "Copy a container on the same remote",
	Long: `Copy a container to a new name on the same remote.

The copy inherits the source's architecture, profiles, config and devices
unless overridden. volatile.* keys are not copied, so the new container gets
its own identity. Use migrate to copy between remotes.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, src, err := target(args[0])
		if err != nil {
			return err
		}
		dstRemote, dst, err := target(args[1])
		if err != nil {
			return err
		}
		if dstRemote != remote {
			return fmt.Errorf("copy works within one remote; use migrate to copy from %s to %s", remote, dstRemote)
		}

		config, err := parseKeyValues(copyConfig)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := connect(ctx, remote)
		if err != nil {
			return err
		}
		defer s.close()

		fmt.Printf("Copying container %s to %s\n", src, dst)
		h, err := s.manager.Copy(ctx, src, dst, container.CopyOptions{
			Architecture: copyArch,
			Profiles:     copyProfiles,
			Ephemeral:    copyEphemeral,
			Config:       toAny(config),
		})
		if err != nil {
			return err
		}
		return s.finish(ctx, h, fmt.Sprintf("Container %s copied to %s", src, dst))
	},
}
