package container

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/hyperkit/internal/client"
	"github.com/jbweber/hyperkit/internal/errdefs"
	"github.com/jbweber/hyperkit/internal/operation"
	"github.com/jbweber/hyperkit/internal/source"
)

// Integration tests run against a real daemon:
//
//	HYPERKIT_TEST_REMOTE=unix:///var/snap/lxd/common/lxd/unix.socket go test ./internal/container/
//
// HTTPS remotes also need HYPERKIT_TEST_CLIENT_CERT and HYPERKIT_TEST_CLIENT_KEY.
func newIntegrationManager(t *testing.T) *Manager {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	address := os.Getenv("HYPERKIT_TEST_REMOTE")
	if address == "" {
		t.Skip("HYPERKIT_TEST_REMOTE not set")
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	c, err := client.Connect(client.Options{
		Address:            address,
		ClientCert:         os.Getenv("HYPERKIT_TEST_CLIENT_CERT"),
		ClientKey:          os.Getenv("HYPERKIT_TEST_CLIENT_KEY"),
		InsecureSkipVerify: true,
		Logger:             logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return NewManager(c, operation.New(c, operation.WithLogger(logger)), Options{
		Timeout: 2 * time.Minute,
		Logger:  logger,
	})
}

func TestIntegration_EmptyContainerLifecycle(t *testing.T) {
	m := newIntegrationManager(t)
	ctx := context.Background()
	name := "hyperkit-it-" + time.Now().Format("150405")

	desc, err := source.Resolve(source.Options{Empty: true})
	require.NoError(t, err)

	h, err := m.Create(ctx, Spec{Name: name, Profiles: []string{"default"}, Source: desc})
	require.NoError(t, err)
	_, err = m.Wait(ctx, h)
	require.NoError(t, err)

	renamed := name + "-b"
	t.Cleanup(func() {
		for _, n := range []string{name, renamed} {
			if h, err := m.Delete(ctx, n); err == nil {
				_, _ = m.Wait(ctx, h)
			}
		}
	})

	state, err := m.State(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "Stopped", state.Status)

	h, err = m.SetConfig(ctx, name, map[string]any{"user.purpose": "integration"})
	require.NoError(t, err)
	_, err = m.Wait(ctx, h)
	require.NoError(t, err)

	rec, err := m.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "integration", rec.Config["user.purpose"])

	h, err = m.Rename(ctx, name, renamed)
	require.NoError(t, err)
	_, err = m.Wait(ctx, h)
	require.NoError(t, err)

	// An empty container has no rootfs, so starting it fails on the server.
	err = m.Start(ctx, renamed, StateOptions{})
	assert.True(t, errors.Is(err, errdefs.ErrBadRequest), "expected ErrBadRequest, got %v", err)

	h, err = m.Delete(ctx, renamed)
	require.NoError(t, err)
	_, err = m.Wait(ctx, h)
	require.NoError(t, err)
}
