package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name  string
		level logrus.Level
		data  logrus.Fields
		want  Category
	}{
		{"untagged", logrus.InfoLevel, nil, Normal},
		{"tagged", logrus.InfoLevel, logrus.Fields{CategoryField: Canvas}, Canvas},
		{"string tag", logrus.InfoLevel, logrus.Fields{CategoryField: "search"}, Search},
		{"error level wins", logrus.ErrorLevel, logrus.Fields{CategoryField: Playback}, Error},
		{"warn keeps tag", logrus.WarnLevel, logrus.Fields{CategoryField: Control}, Control},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &logrus.Entry{Level: tt.level, Data: tt.data}
			if got := CategoryOf(e); got != tt.want {
				t.Errorf("CategoryOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetupWritesLogFile(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "bridge.log")
	var console bytes.Buffer
	out, err := Setup(Options{Level: logrus.DebugLevel, Output: &console, LogFile: path})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	With(Playback).Debug("next track")
	var quiet bytes.Buffer
	out.SetConsole(&quiet)
	With(Search).Info("searching")
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, out := range []string{string(raw), console.String()} {
		if !strings.Contains(out, "next track") || !strings.Contains(out, "category=playback") {
			t.Errorf("log output = %q", out)
		}
	}
	if strings.Contains(console.String(), "searching") {
		t.Error("console still receives entries after SetConsole")
	}
	if !strings.Contains(string(raw), "searching") || !strings.Contains(quiet.String(), "searching") {
		t.Errorf("entry after SetConsole missing: file %q, console %q", raw, quiet.String())
	}
}
