package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNewLoggerSingleton(t *testing.T) {
	first := NewLogger("test-singleton")
	second := NewLogger("test-singleton")

	if first != second {
		t.Error("NewLogger should return the same entry for the same component")
	}

	if first.Data["component"] != "test-singleton" {
		t.Errorf("expected component field 'test-singleton', got '%v'", first.Data["component"])
	}
}

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "disk filling up",
		Data:    logrus.Fields{"component": "watch", "path": "/tmp"},
	}

	out, err := formatter.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, "[WARN]") {
		t.Errorf("expected level tag in output, got %q", s)
	}
	if !strings.Contains(s, "[watch]") {
		t.Errorf("expected component tag in output, got %q", s)
	}
	if !strings.Contains(s, "path=/tmp") {
		t.Errorf("expected extra field in output, got %q", s)
	}
	if !strings.Contains(s, "2026-03-14") {
		t.Errorf("expected timestamp in output, got %q", s)
	}
}

func TestTextFormatterSimplePreset(t *testing.T) {
	formatter := &TextFormatter{Config: FormatConfig{
		DisableTimestamp: true,
		DisableComponent: true,
	}}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Now(),
		Level:   logrus.InfoLevel,
		Message: "hello",
		Data:    logrus.Fields{"component": "bridge"},
	}

	out, err := formatter.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	s := string(out)
	if strings.Contains(s, "[bridge]") {
		t.Errorf("component should be suppressed, got %q", s)
	}
	if strings.Contains(s, time.Now().Format("2006-01-02")) {
		t.Errorf("timestamp should be suppressed, got %q", s)
	}
}

func TestLoggerWritesThroughFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{})

	logger.WithField("component", "test").Info("message one")

	if !strings.Contains(buf.String(), "message one") {
		t.Errorf("expected message in buffer, got %q", buf.String())
	}
}
