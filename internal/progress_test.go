package internal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		fn      func() error
		wantErr bool
	}{
		{
			name:    "successful function",
			message: "Checking endpoint",
			fn:      func() error { return nil },
		},
		{
			name:    "function with error",
			message: "Checking endpoint",
			fn:      func() error { return errors.New("connection refused") },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgress(ctx, tt.message, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrintHelpers_NonTerminal(t *testing.T) {
	tests := []struct {
		name  string
		print func(w *bytes.Buffer)
		want  string
	}{
		{"success", func(w *bytes.Buffer) { PrintSuccess(w, "saved") }, "saved\n"},
		{"error", func(w *bytes.Buffer) { PrintError(w, "failed") }, "ERROR: failed\n"},
		{"info", func(w *bytes.Buffer) { PrintInfo(w, "note") }, "note\n"},
		{"warning", func(w *bytes.Buffer) { PrintWarning(w, "careful") }, "WARNING: careful\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.print(&buf)
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is not a terminal")
	}
	if isTerminal(&strings.Builder{}) {
		t.Error("a builder is not a terminal")
	}
}
