package log

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLogger() {
	baseLogger = zerolog.New(os.Stderr)
	baseLevel = zerolog.InfoLevel
	viperConf = viper.New()
	isLogInit = false
}

func createCleanLogger(t *testing.T, configText string, moduleName string) *Logger {
	resetLogger()

	tmpfile, err := ioutil.TempFile("", "reserveslog*.toml")
	require.NoError(t, err)
	_, err = tmpfile.Write([]byte(configText))
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	envKey := confEnvPrefix + "_" + confFilePathKey
	os.Setenv(envKey, tmpfile.Name())
	t.Cleanup(func() {
		os.Unsetenv(envKey)
		os.Remove(tmpfile.Name())
	})

	return NewLogger(moduleName)
}

func TestDefaultConfig(t *testing.T) {
	resetLogger()
	logger := Default()
	assert.Equal(t, "info", logger.Level())
	assert.Equal(t, "", logger.Name())
}

func TestBasicLevel(t *testing.T) {
	logger := createCleanLogger(t, `level = "error"`, "statemachine")
	assert.Equal(t, "error", logger.Level())
	assert.Equal(t, "statemachine", logger.Name())
}

func TestSubLevel(t *testing.T) {
	configStr := `
level = "error"

[keeper]
level = "debug"
`
	logger := createCleanLogger(t, configStr, "keeper")
	assert.Equal(t, "error", Default().Level())
	assert.Equal(t, "debug", logger.Level())
	assert.True(t, logger.IsDebugEnabled())
}

func TestBadLevelFallsBackToInfo(t *testing.T) {
	logger := createCleanLogger(t, `level = "loud"`, "smt")
	assert.Equal(t, "info", logger.Level())
	assert.False(t, logger.IsDebugEnabled())
}

func TestGetOutput(t *testing.T) {
	out, err := getOutput("stdout")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, out)

	out, err = getOutput("stderr")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, out)

	_, err = getOutput("")
	assert.Error(t, err)

	_, err = getOutput("no/where/dir/nofile.log")
	assert.Error(t, err)
}

func TestFileOutByModule(t *testing.T) {
	dir, err := ioutil.TempDir("", "reserveslog")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	baseLogName := filepath.ToSlash(filepath.Join(dir, "base.log"))
	keeperLogName := filepath.ToSlash(filepath.Join(dir, "keeper.log"))

	configStr := fmt.Sprintf(`
out = "%s"
level = "info"

[keeper]
out = "%s"
`, baseLogName, keeperLogName)
	keeperLog := createCleanLogger(t, configStr, "keeper")
	keeperLog.Info().Msg("keeper write")

	otherLog := NewLogger("statemachine")
	otherLog.Info().Msg("statemachine write")

	baseContent, err := ioutil.ReadFile(baseLogName)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(baseContent, []byte("statemachine write")))
	assert.False(t, bytes.Contains(baseContent, []byte("keeper write")))

	keeperContent, err := ioutil.ReadFile(keeperLogName)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(keeperContent, []byte("keeper write")))
}
