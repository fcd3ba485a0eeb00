package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoggerLog(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "actions.jsonl")

	lg, err := New(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = lg.Close() }()

	event := Event{
		Timestamp:    "2026-02-02T12:00:00Z",
		Community:    "askhistory",
		Queue:        "modqueue",
		ItemFullname: "t3_abc123",
		Action:       "remove",
	}
	if err := lg.Log(event); err != nil {
		t.Fatalf("failed to log event: %v", err)
	}
	_ = lg.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var parsed Event
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to parse log line as JSON: %v", err)
	}
	if parsed.Action != "remove" {
		t.Errorf("Action = %q, want remove", parsed.Action)
	}
	if parsed.Community != "askhistory" {
		t.Errorf("Community = %q, want askhistory", parsed.Community)
	}
}

func TestLoggerRedactsErrors(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "actions.jsonl")

	lg, err := New(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = lg.Close() }()

	if err := lg.Log(Event{
		ItemFullname: "t3_abc123",
		Action:       "remove",
		Error:        "token exchange failed: client_secret=abcdef0123456789abcdef",
	}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	_ = lg.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var parsed Event
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if parsed.Error == "" || parsed.Error == "token exchange failed: client_secret=abcdef0123456789abcdef" {
		t.Errorf("expected error field to be redacted, got %q", parsed.Error)
	}
}

func TestLoggerRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "actions.jsonl")

	big := make([]byte, defaultMaxLogBytes)
	if err := os.WriteFile(logPath, big, 0600); err != nil {
		t.Fatalf("failed to seed large log file: %v", err)
	}

	lg, err := New(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = lg.Close() }()

	if err := lg.Log(Event{ItemFullname: "t3_def456", Action: "approve"}); err != nil {
		t.Fatalf("Log after rotation failed: %v", err)
	}

	if _, err := os.Stat(logPath + ".1"); err != nil {
		t.Errorf("expected rotated file %s.1 to exist: %v", logPath, err)
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("fresh log file missing: %v", err)
	}
	if info.Size() >= defaultMaxLogBytes {
		t.Errorf("fresh log file is still %d bytes; expected < %d", info.Size(), defaultMaxLogBytes)
	}
}

func TestLoggerFilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "secure.jsonl")

	lg, err := New(logPath)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	_ = lg.Close()

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("failed to stat log file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected file permissions 0600, got %04o", perm)
	}
}
