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

func TestNew_Level(t *testing.T) {
	tests := []struct {
		in       string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{" WARN ", logrus.WarnLevel},
		{"", logrus.InfoLevel},
		{"chatty", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(Options{Level: tt.in}).GetLevel())
		})
	}
}

func TestComponent_JSON(t *testing.T) {
	logger := New(Options{Level: "info"})
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	Component(logger, "importer").WithField("rows", 3).Info("Imported listings")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "importer", entry["component"])
	assert.Equal(t, "Imported listings", entry["msg"])
	assert.Equal(t, float64(3), entry["rows"])
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger := New(Options{Level: "info", File: path, MaxSizeMB: 1})

	logger.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
