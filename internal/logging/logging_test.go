package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestInitLogger(t *testing.T) {
	defer InitLogger(os.Stderr, LevelInfo, FormatText)

	tests := []struct {
		name    string
		level   Level
		format  Format
		logFunc func()
		wantLog bool
	}{
		{"debug hidden at info", LevelInfo, FormatText, func() { Debug("hidden") }, false},
		{"info shown at info", LevelInfo, FormatText, func() { Info("shown") }, true},
		{"info hidden at warn", LevelWarn, FormatJSON, func() { Info("hidden") }, false},
		{"warn shown at warn", LevelWarn, FormatJSON, func() { Warn("shown") }, true},
		{"debug shown at debug", LevelDebug, FormatText, func() { Debug("shown") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			InitLogger(&buf, tt.level, tt.format)
			tt.logFunc()
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("Expected output %v, got %q", tt.wantLog, buf.String())
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	defer InitLogger(os.Stderr, LevelInfo, FormatText)

	var buf bytes.Buffer
	InitLogger(&buf, LevelInfo, FormatJSON)
	GetLogger().Info("resampled", "voxels", 64)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "resampled" || entry["voxels"] != float64(64) {
		t.Errorf("Unexpected entry %v", entry)
	}
	if ts, ok := entry["time"].(string); !ok || !strings.Contains(ts, "T") {
		t.Errorf("Expected an RFC3339 time, got %v", entry["time"])
	}
}

func TestParse(t *testing.T) {
	if l, err := ParseLevel("WARN"); err != nil || l != LevelWarn {
		t.Errorf("Expected LevelWarn, got %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level, got nil")
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("Expected FormatJSON, got %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected error for unknown format, got nil")
	}
}

func TestProgress(t *testing.T) {
	defer InitLogger(os.Stderr, LevelInfo, FormatText)

	var buf bytes.Buffer
	InitLogger(&buf, LevelDebug, FormatText)
	report := Progress("resample", 0.25)
	for _, f := range []float64{0, 0.1, 0.2, 0.3, 0.5, 0.6, 1} {
		report(f)
	}
	// 0, 0.3, 0.6 and 1
	if got := strings.Count(buf.String(), "msg=progress"); got != 4 {
		t.Errorf("Expected 4 progress lines, got %d:\n%s", got, buf.String())
	}
}
