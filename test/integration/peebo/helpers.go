package peebo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peebo/peebo/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "peebo"
	}

	// If the path is already absolute, just check it exists.
	// If relative, the caller should pass an absolute path via the env var,
	// because go test changes the CWD to the test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("PEEBO_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("peebo binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "PEEBO_INTEGRATION"
		envBinary     = "PEEBO_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// Env is an isolated peebo data directory.
type Env struct {
	Config  Config
	DataDir string
}

// NewEnv creates a temp data directory with a valid applicant profile.
func NewEnv(t *testing.T, config Config) Env {
	t.Helper()

	dir := t.TempDir()
	profile := `
personal:
  name: Jane Doe
  email: jane@example.com
  phone: "+1 555 0100"
  location: Berlin
  linkedin: https://linkedin.com/in/janedoe
resume:
  text: Go engineer with ten years of experience.
`
	if err := os.WriteFile(filepath.Join(dir, "applicant.yaml"), []byte(profile), 0o644); err != nil {
		t.Fatalf("could not write applicant profile: %s", err)
	}

	return Env{Config: config, DataDir: dir}
}

// globalArgs are the flags every command runs with: an isolated data dir and
// the fake provider polling fast.
func (e Env) globalArgs() []string {
	return []string{"--no-log", "--data-dir", e.DataDir, "--provider", "fake", "--poll-interval", "10ms"}
}

// Run runs a peebo command in the env. Arguments are split by spaces.
func (e Env) Run(ctx context.Context, cmdArgs string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("%s %s", strings.Join(e.globalArgs(), " "), cmdArgs)
	return testutils.RunPeebo(ctx, nil, e.Config.Binary, args, true)
}

// RunArgs runs a peebo command in the env with pre-split arguments.
func (e Env) RunArgs(ctx context.Context, args ...string) (stdout, stderr []byte, err error) {
	return testutils.RunPeeboArgs(ctx, nil, e.Config.Binary, append(e.globalArgs(), args...), true)
}

// RunApply applies to a job and waits for the task to end. The role is set
// so the job page is never fetched.
func (e Env) RunApply(ctx context.Context, jobURL string) (stdout, stderr []byte, err error) {
	return e.Run(ctx, fmt.Sprintf("apply %s --role Engineer --format json", jobURL))
}

// RunList lists applications in JSON format.
func (e Env) RunList(ctx context.Context, extraArgs string) (stdout, stderr []byte, err error) {
	return e.Run(ctx, "list --format json "+extraArgs)
}
