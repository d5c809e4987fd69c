package c2patool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"testing"

	"sigil/internal/config"
	"sigil/internal/identity"
)

func testTool(tokens TokenSource) *Tool {
	cfg := config.Default()
	return New(&cfg, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("C2PATOOL_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestExecuteParsesJSON(t *testing.T) {
	setHelperCommand(t, "json")

	result := testTool(nil).Execute(context.Background(), Command{Binary: "c2patool", Args: []string{"asset.jpg"}})
	if result == nil {
		t.Fatal("expected parsed result")
	}
	if result["active_manifest"] != "urn:uuid:1234" {
		t.Fatalf("expected active_manifest field, got %v", result)
	}
}

func TestExecuteNonJSONReturnsNil(t *testing.T) {
	setHelperCommand(t, "notjson")

	result := testTool(nil).Execute(context.Background(), Command{Binary: "c2patool"})
	if result != nil {
		t.Fatalf("expected nil result for non-JSON stdout, got %v", result)
	}
}

func TestExecuteEmptyStdoutReturnsNil(t *testing.T) {
	setHelperCommand(t, "empty")

	result := testTool(nil).Execute(context.Background(), Command{Binary: "c2patool"})
	if result != nil {
		t.Fatalf("expected nil result for empty stdout, got %v", result)
	}
}

func TestExecuteSubprocessFailureReturnsNil(t *testing.T) {
	setHelperCommand(t, "fail")

	result := testTool(nil).Execute(context.Background(), Command{Binary: "c2patool"})
	if result != nil {
		t.Fatalf("expected nil result for failed subprocess, got %v", result)
	}
}

func TestRunFailureCarriesStderr(t *testing.T) {
	setHelperCommand(t, "fail")

	_, err := testTool(nil).Run(context.Background(), Command{Binary: "c2patool"})
	if err == nil {
		t.Fatal("expected error from failed subprocess")
	}
}

func TestAddManifestCommandVariants(t *testing.T) {
	tools := config.Tools{PublicBinary: "c2patool", InternalBinary: "c2pa-internal"}

	cmd := AddManifestCommand(tools, "/out/r.jpg", "/tmp/m.json", "/in/s.jpg", true)
	if cmd.Binary != "c2pa-internal" {
		t.Fatalf("expected internal binary, got %q", cmd.Binary)
	}
	if findArg(cmd.Args, "--parent") == -1 {
		t.Fatalf("expected --parent flag, got %v", cmd.Args)
	}

	cmd = AddManifestCommand(tools, "/out/r.jpg", "/tmp/m.json", "", true)
	if findArg(cmd.Args, "--parent") != -1 {
		t.Fatalf("expected no --parent flag without parent asset, got %v", cmd.Args)
	}

	cmd = AddManifestCommand(tools, "/out/r.jpg", "/tmp/m.json", "/in/s.jpg", false)
	if cmd.Binary != "c2patool" {
		t.Fatalf("expected public binary, got %q", cmd.Binary)
	}
	if findArg(cmd.Args, "-p") == -1 {
		t.Fatalf("expected -p flag, got %v", cmd.Args)
	}

	cmd = AddManifestCommand(tools, "/out/r.jpg", "/tmp/m.json", "", false)
	if findArg(cmd.Args, "-p") != -1 {
		t.Fatalf("expected no -p flag without parent asset, got %v", cmd.Args)
	}
}

func TestSignCommandIncludesCredentials(t *testing.T) {
	tools := config.Tools{PublicBinary: "c2patool", InternalBinary: "c2pa-internal"}
	signing := config.Signing{
		CertificatePath: "/creds/cert.pem",
		PrivateKeyPath:  "/creds/key.pem",
		Algorithm:       "es256",
		TSAURL:          "http://tsa.example.test",
	}

	cmd := SignCommand(tools, signing, "/tmp/asset.jpg", "/tmp/m.json", "/tmp/out.jpg")
	for _, flag := range []string{"--cert", "--key", "--alg", "--tsa-url", "-m", "-o"} {
		if findArg(cmd.Args, flag) == -1 {
			t.Fatalf("expected %s flag, got %v", flag, cmd.Args)
		}
	}
}

type stubTokens struct {
	token string
	err   error
	creds identity.Credentials
}

func (s *stubTokens) Exchange(ctx context.Context, creds identity.Credentials) (string, error) {
	s.creds = creds
	return s.token, s.err
}

func TestAddManifestAttachesToken(t *testing.T) {
	var capturedArgs []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		capturedArgs = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "C2PATOOL_HELPER_MODE=json")
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})

	tokens := &stubTokens{token: "tok-9"}
	tool := testTool(tokens)
	result, err := tool.AddManifest(context.Background(), "/out/r.jpg", "/tmp/m.json", "", SignParams{
		ClientSecret:       "secret",
		AccessCode:         "code",
		Tier:               "STAGE",
		UseInternalTooling: true,
	})
	if err != nil {
		t.Fatalf("AddManifest returned error: %v", err)
	}
	if result == nil {
		t.Fatal("expected tool result")
	}

	idx := findArg(capturedArgs, "--auth-token")
	if idx == -1 || idx+1 >= len(capturedArgs) {
		t.Fatalf("expected --auth-token flag with value, got %v", capturedArgs)
	}
	if capturedArgs[idx+1] != "tok-9" {
		t.Fatalf("expected token tok-9, got %q", capturedArgs[idx+1])
	}
	if tokens.creds.Tier != "STAGE" {
		t.Fatalf("expected tier forwarded to token source, got %q", tokens.creds.Tier)
	}
}

func TestAddManifestAuthFailure(t *testing.T) {
	setHelperCommand(t, "json")

	tokens := &stubTokens{err: errors.New("provider down")}
	tool := testTool(tokens)
	_, err := tool.AddManifest(context.Background(), "/out/r.jpg", "/tmp/m.json", "", SignParams{
		UseInternalTooling: true,
	})
	if !errors.Is(err, ErrAuthAttachment) {
		t.Fatalf("expected ErrAuthAttachment, got %v", err)
	}
}

func TestAddManifestPublicSkipsTokenExchange(t *testing.T) {
	setHelperCommand(t, "json")

	tool := testTool(nil)
	result, err := tool.AddManifest(context.Background(), "/out/r.jpg", "/tmp/m.json", "", SignParams{})
	if err != nil {
		t.Fatalf("AddManifest returned error: %v", err)
	}
	if result == nil {
		t.Fatal("expected tool result without token exchange")
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("C2PATOOL_HELPER_MODE") {
	case "json":
		fmt.Println(`{"active_manifest":"urn:uuid:1234","manifests":{"urn:uuid:1234":{"title":"r.jpg"}}}`)
		os.Exit(0)
	case "notjson":
		fmt.Println("not json")
		os.Exit(0)
	case "empty":
		fmt.Println("   ")
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "tool exploded")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func findArg(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
