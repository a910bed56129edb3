package cmd

import (
	"net/http"
	"strings"
	"testing"

	"github.com/iksnae/pagechat/testutil"
)

func TestChatCommand_ReplyThenEOF(t *testing.T) {
	server := testutil.NewCompletionServer(t, http.StatusOK, testutil.SampleStream)
	dir := newStateDir(t, server.URL)

	out, err := runCommand(t, "hi\n", "chat", "--config", dir)
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "You: hi") || !strings.Contains(out, "Assistant: Hello world") {
		t.Errorf("output = %q", out)
	}
}

func TestChatCommand_Commands(t *testing.T) {
	dir := newStateDir(t, "http://127.0.0.1:1")

	out, err := runCommand(t, "/help\n/bogus\n/page\n/retry\n/exit\nnot sent\n", "chat", "--config", dir)
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	for _, want := range []string{"Commands:", "unknown command /bogus", "No page attached", "no user message to retry"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "You: not sent") {
		t.Error("input after /exit should be ignored")
	}
}

func TestChatCommand_Resume(t *testing.T) {
	server := testutil.NewCompletionServer(t, http.StatusOK, testutil.SampleStream)
	dir := newStateDir(t, server.URL)

	if _, err := runCommand(t, "first question\n", "chat", "--config", dir); err != nil {
		t.Fatalf("first chat error = %v", err)
	}

	out, err := runCommand(t, "second question\n", "chat", "--resume", "--config", dir)
	if err != nil {
		t.Fatalf("resumed chat error = %v", err)
	}
	if !strings.Contains(out, "Resuming conversation") || !strings.Contains(out, "You: first question") {
		t.Errorf("previous conversation not shown:\n%s", out)
	}

	reqs := server.Requests()
	last := reqs[len(reqs)-1].Body
	if !strings.Contains(last, "first question") || !strings.Contains(last, "second question") {
		t.Errorf("resumed request should replay history:\n%s", last)
	}
}

func TestChatCommand_Clear(t *testing.T) {
	server := testutil.NewCompletionServer(t, http.StatusOK, testutil.SampleStream)
	dir := newStateDir(t, server.URL)

	if _, err := runCommand(t, "hi\n", "chat", "--config", dir); err != nil {
		t.Fatalf("chat error = %v", err)
	}
	out, err := runCommand(t, "/clear\n", "chat", "--resume", "--config", dir)
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "Conversation cleared") {
		t.Errorf("output = %q", out)
	}

	out, err = runCommand(t, "", "history", "list", "--config", dir)
	if err != nil {
		t.Fatalf("history list error = %v", err)
	}
	if !strings.Contains(out, "No conversations found") {
		t.Errorf("history should be empty after /clear:\n%s", out)
	}
}
