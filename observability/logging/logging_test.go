package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupRenamesCoreKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "vestingd", "test")
	logger.Info("started", MaskField("authorization", "Bearer abc"), MaskField("method", "release"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "started", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "vestingd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
	require.Equal(t, RedactedValue, line["authorization"])
	require.Equal(t, "release", line["method"])
}

func TestSetupWithFileWritesRotatedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vestingd.log")
	logger, closer := SetupWithFile("vestingd", "", FileOptions{Path: path, MaxSizeMB: 1})
	logger.Warn("disk check")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"message":"disk check"`)
	require.NotContains(t, string(data), `"env"`)
}

func TestMaskValue(t *testing.T) {
	require.Equal(t, "", MaskValue("  "))
	require.Equal(t, RedactedValue, MaskValue("secret"))
	require.True(t, IsAllowlisted(" Service "))
	require.Contains(t, RedactionAllowlist(), "caller")
}
