package cmd

import (
	"net/http"
	"strings"
	"testing"

	"github.com/iksnae/pagechat/testutil"
)

func TestHealthcheckCommand_Passes(t *testing.T) {
	server := testutil.NewCompletionServer(t, http.StatusOK, testutil.SampleStream)
	dir := newStateDir(t, server.URL)

	out, err := runCommand(t, "", "healthcheck", "--details", "--config", dir)
	if err != nil {
		t.Fatalf("healthcheck error = %v\n%s", err, out)
	}
	for _, want := range []string{
		"Settings file found",
		"History available (0 conversation(s))",
		"Endpoint serves 2 model(s)",
		"[2] llama3",
		"Model granite4:3b is available",
		"Health check passed!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHealthcheckCommand_UnlistedModel(t *testing.T) {
	server := testutil.NewCompletionServer(t, http.StatusOK, testutil.SampleStream)
	dir := testutil.CreateTempDir(t)
	testutil.CreateSettingsFixture(t, dir, "base_url: "+server.URL+"\nmodel_name: mistral\nlog_level: error\n")

	out, err := runCommand(t, "", "healthcheck", "--config", dir)
	if err != nil {
		t.Fatalf("an unlisted model is only a warning: %v", err)
	}
	if !strings.Contains(out, "Model mistral is not listed") {
		t.Errorf("output = %q", out)
	}
}

func TestHealthcheckCommand_Fails(t *testing.T) {
	dir := newStateDir(t, "http://127.0.0.1:1")

	out, err := runCommand(t, "", "healthcheck", "--timeout", "2s", "--config", dir)
	if err == nil || err.Error() != "health check failed" {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out, "Endpoint unreachable") || strings.Contains(out, "Step 4") {
		t.Errorf("output = %q", out)
	}
}

func TestHealthcheckCommand_Flags(t *testing.T) {
	if healthcheckCmd.Flag("details") == nil || healthcheckCmd.Flag("timeout") == nil {
		t.Error("healthcheck should have --details and --timeout flags")
	}
}

func TestContainsString(t *testing.T) {
	values := []string{"granite4:3b", "llama3"}
	if !containsString(values, "llama3") {
		t.Error("containsString() should find llama3")
	}
	if containsString(values, "llama") {
		t.Error("containsString() should match whole values only")
	}
	if containsString(nil, "x") {
		t.Error("containsString(nil) should be false")
	}
}
