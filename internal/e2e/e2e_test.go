package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/cloudflare-cli/internal/artifact"
	cli "github.com/mark3labs/cloudflare-cli/internal/cli"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
	"github.com/mark3labs/cloudflare-cli/schemas"
)

const bundledSpec = "../../schemas/openapi.yaml"

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := cli.NewRootCmd(cli.WithArgs(args))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	require.NoError(t, root.Execute(), "cli execute %v", args)
	return out.String()
}

func digestFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return artifact.Digest(b)
}

func TestE2E_Compile_Deterministic(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out1 := filepath.Join(dir, "one.json")
	out2 := filepath.Join(dir, "two.json")

	runCLI(t, "compile", "--input", bundledSpec, "--out", out1)
	runCLI(t, "compile", "--input", bundledSpec, "--out", out2)

	assert.Equal(t, digestFile(t, out1), digestFile(t, out2), "compiled trees differ between runs")

	// The bundled tree is regenerated from the bundled document.
	got, err := os.ReadFile(out1)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(got, schemas.CommandTree), "schemas/command_tree.json is stale; run: cloudflare compile")
}

func TestE2E_Compile_Compressed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	plain := filepath.Join(dir, "tree.json")
	packed := filepath.Join(dir, "tree.json.zst")

	runCLI(t, "compile", "--input", bundledSpec, "--out", plain)
	runCLI(t, "compile", "--input", bundledSpec, "--out", packed)

	a, err := artifact.Load(plain)
	require.NoError(t, err)
	b, err := artifact.Load(packed)
	require.NoError(t, err)
	ab, err := tree.Marshal(a)
	require.NoError(t, err)
	bb, err := tree.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ab), string(bb), "compressed tree decodes to a different tree")

	st1, err := os.Stat(plain)
	require.NoError(t, err)
	st2, err := os.Stat(packed)
	require.NoError(t, err)
	assert.Less(t, st2.Size(), st1.Size(), "expected compression")

	out := runCLI(t, "--tree", packed, "describe", "zone", "zones-get")
	assert.Contains(t, out, "GET /zones")
}

// Talks to the real API when CLOUDFLARE_E2E_ONLINE=1 and a token is set.
func TestE2E_Online_VerifyToken(t *testing.T) {
	if os.Getenv("CLOUDFLARE_E2E_ONLINE") != "1" || os.Getenv("CLOUDFLARE_API_TOKEN") == "" {
		t.Skip("set CLOUDFLARE_E2E_ONLINE=1 and CLOUDFLARE_API_TOKEN to run")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var out bytes.Buffer
	args := []string{"user-api-tokens", "user-api-tokens-verify-token"}
	root := cli.NewRootCmd(cli.WithArgs(args))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(ctx), out.String())
	assert.Contains(t, out.String(), `"status"`)
}

func TestE2E_Binary_Version(t *testing.T) {
	if os.Getenv("CLOUDFLARE_E2E_ONLINE") != "1" || !haveCmd("go") {
		t.Skip("set CLOUDFLARE_E2E_ONLINE=1 with a Go toolchain to build the binary")
	}
	bin := filepath.Join(t.TempDir(), "cloudflare")
	if err := runCmdWithTimeout("../..", 2*time.Minute, "go", "build", "-o", bin, "./cmd/cloudflare"); err != nil {
		t.Skipf("go build skipped (likely offline or missing deps): %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, "zonee")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, cli.ExitUsage, exitErr.ExitCode())
	assert.Contains(t, stderr.String(), `did you mean "zone"`)
}

func haveCmd(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runCmdWithTimeout(dir string, timeout time.Duration, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return &execError{err: err, output: out.String()}
	}
	return nil
}

type execError struct {
	err    error
	output string
}

func (e *execError) Error() string { return e.err.Error() + ": " + e.output }
