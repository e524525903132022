// Package support holds the step definitions of the readout feature suite.
// Commands run in-process against cmd.NewRootCommand and the server runs
// under httptest, so the suite needs no built binary.
package support

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/readout/internal/server"
)

// workDirVar is replaced by the scenario's working directory in commands
// and paths.
const workDirVar = "{workdir}"

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStderr   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	WorkDir string
	envKeys []string

	// Server state
	HTTPServer *httptest.Server
	Server     *server.Server

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a context with a fresh working directory.
func NewTestContext() (*TestContext, error) {
	dir, err := os.MkdirTemp("", "readout-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		WorkDir:         dir,
		LastHTTPHeaders: map[string]string{},
	}, nil
}

// Cleanup stops the server, restores the environment and removes the
// working directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, err)
	}
	for _, key := range testCtx.envKeys {
		if err := os.Unsetenv(key); err != nil {
			errs = append(errs, fmt.Errorf("failed to unset %s: %w", key, err))
		}
	}
	testCtx.envKeys = nil

	if err := os.RemoveAll(testCtx.WorkDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.WorkDir, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// StopServer shuts down the httptest server if one is running.
func (testCtx *TestContext) StopServer() error {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	if testCtx.Server != nil {
		err := testCtx.Server.Close()
		testCtx.Server = nil
		if err != nil {
			return fmt.Errorf("failed to close server: %w", err)
		}
	}
	return nil
}

// SetEnv sets an environment variable until the scenario ends.
func (testCtx *TestContext) SetEnv(key, value string) error {
	if err := os.Setenv(key, value); err != nil {
		return err
	}
	testCtx.envKeys = append(testCtx.envKeys, key)
	return nil
}

// Path resolves name inside the working directory.
func (testCtx *TestContext) Path(name string) string {
	name = testCtx.substitute(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.WorkDir, name)
}

func (testCtx *TestContext) substitute(s string) string {
	return strings.ReplaceAll(s, workDirVar, testCtx.WorkDir)
}
