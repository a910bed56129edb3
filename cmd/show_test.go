package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/pagechat/internal"
)

func TestHistoryShow(t *testing.T) {
	dir := newStateDir(t, "http://h")
	now := time.Now()
	seedHistory(t, dir,
		sampleConversation("older", "first question", now.Add(-time.Hour)),
		sampleConversation("newer", "second question", now),
	)

	tests := []struct {
		name        string
		args        []string
		wantErr     string
		wantContain []string
		wantMissing []string
	}{
		{
			name:        "latest by default",
			args:        []string{"history", "show"},
			wantContain: []string{"Conversation newer", "Messages: 2", "Tokens: 10", "second question", "[2/2]"},
		},
		{
			name:        "by id",
			args:        []string{"history", "show", "older"},
			wantContain: []string{"Conversation older", "first question"},
		},
		{
			name:        "limit keeps the last messages",
			args:        []string{"history", "show", "older", "--limit", "1"},
			wantContain: []string{"An answer to first question", "[2/2]"},
			wantMissing: []string{"[1/2]"},
		},
		{
			name:    "unknown id",
			args:    []string{"history", "show", "missing"},
			wantErr: "conversation not found: missing",
		},
		{
			name:    "too many args",
			args:    []string{"history", "show", "a", "b"},
			wantErr: "accepts at most 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, "", append(tt.args, "--config", dir)...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("history show error = %v", err)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.wantMissing {
				if strings.Contains(out, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestHistoryShow_NoHistory(t *testing.T) {
	dir := newStateDir(t, "http://h")

	_, err := runCommand(t, "", "history", "show", "--config", dir)
	if err == nil || !strings.Contains(err.Error(), "no conversations stored yet") {
		t.Errorf("error = %v", err)
	}
}

func TestDisplayMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  internal.Message
		want string
	}{
		{name: "user message", msg: internal.Message{Role: internal.RoleUser, Content: "Hello, world!"}, want: "User"},
		{name: "assistant message", msg: internal.Message{Role: internal.RoleAssistant, Content: "Hi there!"}, want: "Assistant"},
		{name: "empty message", msg: internal.Message{Role: internal.RoleUser}, want: "(empty message)"},
		{name: "system message", msg: internal.Message{Role: internal.RoleSystem, Content: "Be brief"}, want: "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			displayMessage(&buf, 1, tt.msg, 1)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("displayMessage() = %q, want it to contain %q", buf.String(), tt.want)
			}
			if !strings.Contains(buf.String(), "[1/1]") {
				t.Errorf("displayMessage() = %q, missing position", buf.String())
			}
		})
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{
			name:  "short text",
			text:  "Hello world",
			width: 80,
			want:  "Hello world",
		},
		{
			name:  "long text",
			text:  "This is a very long line of text that should be wrapped",
			width: 20,
			want:  "This is a very long\nline of text that\nshould be wrapped",
		},
		{
			name:  "text with newlines",
			text:  "Line 1\nLine 2\nLine 3",
			width: 80,
			want:  "Line 1\nLine 2\nLine 3",
		},
		{
			name:  "empty text",
			text:  "",
			width: 80,
			want:  "",
		},
		{
			name:  "single long word",
			text:  "supercalifragilisticexpialidocious",
			width: 10,
			want:  "supercalifragilisticexpialidocious",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("wrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}
