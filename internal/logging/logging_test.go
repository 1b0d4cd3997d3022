package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(Options{Level: "debug", Format: "json", Output: &buf}))
	t.Cleanup(func() { _ = Setup(Options{}) })

	For("merge").Debug("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "merge", line["component"])
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
}

func TestSetup_Rejects(t *testing.T) {
	assert.Error(t, Setup(Options{Level: "loud"}))
	assert.Error(t, Setup(Options{Format: "xml"}))
}

func TestSetup_TeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "jobradar.log")
	require.NoError(t, Setup(Options{Output: &buf, File: path}))
	t.Cleanup(func() { _ = Setup(Options{}) })

	logrus.Info("[pipeline] run started")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "run started")
	assert.Contains(t, buf.String(), "run started")
}
