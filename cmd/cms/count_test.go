package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Borislavv/count-min-sketch/pkg/config"
	"github.com/Borislavv/count-min-sketch/pkg/sketch"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

func TestCountDistinct(t *testing.T) {
	cms, err := sketch.New(0.01, 0.99, 0)
	require.NoError(t, err)

	in := strings.NewReader("b1\nb2\tX\n")
	assert.Error(t, count(cms, in, &bytes.Buffer{}, nil))

	cms, err = sketch.New(0.01, 0.99, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	in = strings.NewReader("b1\t10\nb2\t999\nb1\n")
	require.NoError(t, count(cms, in, &out, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "b1\t"))
	assert.True(t, strings.HasPrefix(lines[1], "b2\t"))
}

func TestCountCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "stream.txt")
	require.NoError(t, os.WriteFile(input, []byte("bin-1\t10\nbin-1\t5\nbin-2\n"), 0o644))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"count", input, "--epsilon", "0.01", "--delta", "0.99", "--log-level", "error", "-q", "bin-1"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "bin-1\t15\n", out.String())
}

func TestCountCommandStdin(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("x\nx\nx\n"))
	cmd.SetArgs([]string{"count", "--epsilon", "0.01", "--delta", "0.99", "--hash", "fnv1", "--log-level", "error"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "x\t3\n", out.String())
}

func TestCountCommandRejectsInvalidFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"count", "--delta", "1.5", "--log-level", "error"})

	assert.Error(t, cmd.Execute())
}

func TestCountCommandConfigFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cms.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
cms:
  logs:
    level: error
  sketch:
    epsilon: 0.01
    delta: 0.99
    overflow: fail
`), 0o644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(configPathEnv+"="+cfgPath+"\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv(configPathEnv) })

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("x\t18446744073709551615\nx\t1\n"))
	cmd.SetArgs([]string{"count", "--envfile", envPath})

	err := cmd.Execute()
	assert.True(t, errors.Is(err, sketch.ErrOverflow), "got %v", err)
}

func TestCountCommandDecayFollowsConfigDefault(t *testing.T) {
	cmd := newRootCmd()
	countCmd, _, err := cmd.Find([]string{"count"})
	require.NoError(t, err)
	assert.Equal(t, "0", countCmd.Flags().Lookup("decay").DefValue)
	assert.Zero(t, config.Default().Cms.Sketch.DecayRatio)

	// without --decay the counts stay exact
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("x\nx\nx\n"))
	cmd.SetArgs([]string{"count", "--epsilon", "0.01", "--delta", "0.99", "--log-level", "error"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "x\t3\n", out.String())

	// weight exp(-0.5) floors every unit counter to zero before the next add
	cmd = newRootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("x\nx\nx\n"))
	cmd.SetArgs([]string{"count", "--epsilon", "0.01", "--delta", "0.99", "--decay", "0.5", "--log-level", "error"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "x\t0\n", out.String())
}
