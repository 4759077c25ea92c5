package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogNoopForNilLoggerAndEmptyPath(t *testing.T) {
	var nilLogger *Logger
	if err := nilLogger.Record(ActionSetCurrent, "", nil, nil); err != nil {
		t.Fatalf("nil logger should be noop: %v", err)
	}
	if err := New("").Log(Event{Action: ActionMigrate}); err != nil {
		t.Fatalf("empty-path logger should be noop: %v", err)
	}
	if nilLogger.Path() != "" {
		t.Fatalf("nil logger has no path")
	}
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(string(blob)), "\n") {
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("unmarshal event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestRecordWritesJSONLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "state", "audit.log")
	logger := New(logPath)

	if err := logger.Record(ActionSetCurrent, "DP-1/DEL/U2415/AAA", nil, map[string]string{"strategy": "linear"}); err != nil {
		t.Fatalf("record set_current: %v", err)
	}
	failure := fmt.Errorf("MANAGER_NO_CURRENT: %w", errors.New("no current monitor configuration"))
	if err := logger.Record(ActionSaveCurrent, "", failure, nil); err != nil {
		t.Fatalf("record save_current: %v", err)
	}

	events := readEvents(t, logPath)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0]
	if _, err := time.Parse(time.RFC3339Nano, first.Timestamp); err != nil {
		t.Fatalf("timestamp should be RFC3339Nano: %v", err)
	}
	if first.Action != ActionSetCurrent || first.Status != "ok" || first.Key != "DP-1/DEL/U2415/AAA" {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if first.Fields["strategy"] != "linear" || first.Code != "" {
		t.Fatalf("unexpected first event metadata: %+v", first)
	}
	second := events[1]
	if second.Status != "error" || second.Code != "MANAGER_NO_CURRENT" {
		t.Fatalf("unexpected second event: %+v", second)
	}
	if !strings.Contains(second.Message, "no current monitor configuration") {
		t.Fatalf("expected wrapped message, got %q", second.Message)
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("STORE_PARSE: bad"), "STORE_PARSE"},
		{errors.New("VERIFY_CONFIG_2: bad"), "VERIFY_CONFIG_2"},
		{errors.New("open /tmp/x: no such file"), ""},
		{errors.New("plain"), ""},
		{errors.New(": empty"), ""},
	}
	for _, tc := range cases {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestLogMkdirAllFailure(t *testing.T) {
	blockedPath := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blockedPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("create blocking file: %v", err)
	}
	logger := New(filepath.Join(blockedPath, "audit.log"))
	if err := logger.Record(ActionStoreLoad, "", nil, nil); err == nil {
		t.Fatalf("expected mkdir failure")
	}
}

func TestLogOpenFileFailure(t *testing.T) {
	dirPath := filepath.Join(t.TempDir(), "log-dir")
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		t.Fatalf("create directory path: %v", err)
	}
	if err := New(dirPath).Record(ActionMigrate, "", nil, nil); err == nil {
		t.Fatalf("expected open file failure")
	}
}
