package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/cmd/anvil/app"
	"github.com/catalystcommunity/anvil/v1/internal/config/configtest"
)

func newRoot(out *bytes.Buffer) *cli.Command {
	return &cli.Command{
		Name:   "anvil",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
		},
		Commands: []*cli.Command{Command},
	}
}

func TestShowCommand(t *testing.T) {
	t.Setenv("ANVIL_CONFIG_DIR", t.TempDir())
	cfg := configtest.New()
	cfg.Cluster.Name = "shown-cluster"

	var out bytes.Buffer
	ctx := app.WithConfig(context.Background(), cfg)
	require.NoError(t, newRoot(&out).Run(ctx, []string{"anvil", "config", "show"}))

	assert.Contains(t, out.String(), "name: shown-cluster")
	assert.Contains(t, out.String(), "strategy: MostAllocated")
	assert.NotContains(t, out.String(), "# Configuration:")
}

func TestValidateCommand(t *testing.T) {
	var out bytes.Buffer
	ctx := app.WithConfig(context.Background(), configtest.New())
	require.NoError(t, newRoot(&out).Run(ctx, []string{"anvil", "config", "validate"}))

	assert.Contains(t, out.String(), "Configuration is valid")
	assert.Contains(t, out.String(), "GPU pool: gpupool, 1 x Standard_NC6s_v3 (device-plugin)")
}

func TestValidateCommand_NotLoaded(t *testing.T) {
	var out bytes.Buffer
	err := newRoot(&out).Run(context.Background(), []string{"anvil", "config", "validate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANVIL_CONFIG_DIR", dir)
	t.Setenv("CLUSTER_NAME", "from-env")

	var out bytes.Buffer
	require.NoError(t, newRoot(&out).Run(context.Background(), []string{"anvil", "config", "init"}))

	path := filepath.Join(dir, "config.yaml")
	assert.Contains(t, out.String(), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: from-env")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	err = newRoot(&out).Run(context.Background(), []string{"anvil", "config", "init"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, newRoot(&out).Run(context.Background(), []string{"anvil", "config", "init", "--force"}))
}

func TestPathCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANVIL_CONFIG_DIR", dir)

	var out bytes.Buffer
	require.NoError(t, newRoot(&out).Run(context.Background(), []string{"anvil", "config", "path"}))
	assert.Equal(t, filepath.Join(dir, "config.yaml")+"\n", out.String())

	out.Reset()
	require.NoError(t, newRoot(&out).Run(context.Background(), []string{"anvil", "--config", "/tmp/x.yaml", "config", "path"}))
	assert.Equal(t, "/tmp/x.yaml\n", out.String())
}
