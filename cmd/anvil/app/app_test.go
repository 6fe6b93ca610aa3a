package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/catalystcommunity/anvil/v1/internal/config"
)

func TestNewConfirm(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		assumeYes   bool
		interactive bool
		want        bool
		prompted    bool
	}{
		{name: "assume yes", assumeYes: true, interactive: true, want: true},
		{name: "non-interactive proceeds", want: true},
		{name: "answer y", input: "y\n", interactive: true, want: true, prompted: true},
		{name: "answer YES", input: "YES\n", interactive: true, want: true, prompted: true},
		{name: "answer n", input: "n\n", interactive: true, want: false, prompted: true},
		{name: "empty answer", input: "\n", interactive: true, want: false, prompted: true},
		{name: "eof", input: "", interactive: true, want: false, prompted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			confirm := NewConfirm(strings.NewReader(tt.input), &out, tt.assumeYes, tt.interactive)

			ok, err := confirm("Delete AKS cluster anvil-aks?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			if tt.prompted {
				assert.Equal(t, "Delete AKS cluster anvil-aks? [y/N]: ", out.String())
			} else {
				assert.Empty(t, out.String())
			}
		})
	}
}

func TestConfigFromContext(t *testing.T) {
	_, err := ConfigFromContext(context.Background())
	require.Error(t, err)

	cfg := &config.Config{LogLevel: "debug"}
	got, err := ConfigFromContext(WithConfig(context.Background(), cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestBefore(t *testing.T) {
	t.Setenv("ANVIL_CONFIG_DIR", t.TempDir())
	t.Setenv("LOCATION", "westus2")

	var stderr bytes.Buffer
	var got *config.Config
	root := &cli.Command{
		Name:      "anvil",
		ErrWriter: &stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
			&cli.StringFlag{Name: "log-level"},
			&cli.BoolFlag{Name: "yes"},
		},
		Before: Before,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var err error
			got, err = ConfigFromContext(ctx)
			return err
		},
	}

	require.NoError(t, root.Run(context.Background(), []string{"anvil", "--yes"}))
	require.NotNil(t, got)
	assert.Equal(t, "westus2", got.Azure.Location)
	assert.True(t, got.AssumeYes)
}

func TestBefore_DefersConfigErrors(t *testing.T) {
	t.Setenv("ANVIL_CONFIG_DIR", t.TempDir())
	t.Setenv("GPU_DRIVER_MODE", "bogus")

	var cfgErr error
	root := &cli.Command{
		Name:      "anvil",
		ErrWriter: &bytes.Buffer{},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
			&cli.StringFlag{Name: "log-level"},
			&cli.BoolFlag{Name: "yes"},
		},
		Before: Before,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, cfgErr = ConfigFromContext(ctx)
			return nil
		},
	}

	require.NoError(t, root.Run(context.Background(), []string{"anvil"}))
	require.Error(t, cfgErr)
	assert.Contains(t, cfgErr.Error(), "config validation failed")
}

func TestBefore_InvalidLogLevel(t *testing.T) {
	t.Setenv("ANVIL_CONFIG_DIR", t.TempDir())

	root := &cli.Command{
		Name:      "anvil",
		ErrWriter: &bytes.Buffer{},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config"},
			&cli.StringFlag{Name: "log-level"},
			&cli.BoolFlag{Name: "yes"},
		},
		Before: Before,
		Action: func(ctx context.Context, cmd *cli.Command) error { return nil },
	}

	err := root.Run(context.Background(), []string{"anvil", "--log-level", "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
