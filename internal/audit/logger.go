// Package audit appends one JSON line per state-changing operation.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Action names an audited operation.
type Action string

const (
	ActionSetCurrent  Action = "set_current"
	ActionSaveCurrent Action = "save_current"
	ActionMigrate     Action = "migrate"
	ActionStoreLoad   Action = "store_load"
)

type Logger struct {
	path string
	mu   sync.Mutex
}

type Event struct {
	Timestamp string            `json:"timestamp"`
	Action    Action            `json:"action"`
	Key       string            `json:"key,omitempty"`
	Status    string            `json:"status"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// New returns a logger appending to path. An empty path disables it.
func New(path string) *Logger {
	return &Logger{path: path}
}

func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record logs action for the config identified by key. A nil err is "ok";
// otherwise the status is "error" and the code is the error's CODE prefix.
func (l *Logger) Record(action Action, key string, err error, fields map[string]string) error {
	ev := Event{Action: action, Key: key, Status: "ok", Fields: fields}
	if err != nil {
		ev.Status = "error"
		ev.Code = ErrorCode(err)
		ev.Message = err.Error()
	}
	return l.Log(ev)
}

func (l *Logger) Log(ev Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	blob, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(blob, '\n'))
	return err
}

// ErrorCode extracts the leading "CODE:" of an error message, or "" if the
// message does not start with one.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	code, _, found := strings.Cut(err.Error(), ":")
	if !found || code == "" {
		return ""
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && r != '_' && (r < '0' || r > '9') {
			return ""
		}
	}
	return code
}
