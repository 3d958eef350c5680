package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/linkfolio/linkfolio/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, buff.Len(), 0)

	templogger.Logger.Info().Str("site", "ada").Msg("Test")
	require.Contains(t, buff.String(), `"message":"Test"`)
	require.Contains(t, buff.String(), `"site":"ada"`)
}

func TestLevel(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).WithLevel("warn").Make()
	require.NoError(t, err)

	templogger.Logger.Info().Msg("hidden")
	require.Zero(t, buff.Len())

	templogger.Logger.Warn().Msg("shown")
	require.Contains(t, buff.String(), "shown")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).WithLevel("loud").Make()
	require.NoError(t, err)

	templogger.Logger.Debug().Msg("hidden")
	templogger.Logger.Info().Msg("shown")
	require.NotContains(t, buff.String(), "hidden")
	require.Contains(t, buff.String(), "shown")
}

func TestFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkfolio.log")
	templogger, err := logger.New().FromPath(path).Console(true).Make()
	require.NoError(t, err)

	templogger.Logger.Info().Msg("to file")
	require.NoError(t, templogger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")
}
