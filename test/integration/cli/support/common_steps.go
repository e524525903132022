package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/readout/cmd/readout/cmd"
	"github.com/cucumber/godog"
)

// iRunCommand executes a readout command line in-process from the
// working directory.
func (testCtx *TestContext) iRunCommand(command string) error {
	return testCtx.run(command, "")
}

// iRunCommandWithStdinFrom feeds a file of the working directory to stdin.
func (testCtx *TestContext) iRunCommandWithStdinFrom(command, name string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read stdin file: %w", err)
	}
	return testCtx.run(command, string(data))
}

func (testCtx *TestContext) run(command, stdin string) error {
	command = testCtx.substitute(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] != "readout" {
		return fmt.Errorf("unsupported command %q", parts[0])
	}

	prev, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(testCtx.WorkDir); err != nil {
		return fmt.Errorf("failed to enter working directory: %w", err)
	}
	defer func() { _ = os.Chdir(prev) }()

	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(parts[1:])

	start := time.Now()
	err = root.Execute()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastExitCode = 0
	if err != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	expectedText = testCtx.substitute(expectedText)
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBe compares the whole output with a doc string.
func (testCtx *TestContext) theOutputShouldBe(expected *godog.DocString) error {
	want := strings.TrimSpace(expected.Content)
	got := strings.TrimSpace(testCtx.LastOutput)
	if got != want {
		return fmt.Errorf("output mismatch\nExpected:\n%s\nActual:\n%s", want, got)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.outputJSON()
	return err
}

func (testCtx *TestContext) outputJSON() (map[string]any, error) {
	return decodeJSONObject(testCtx.LastOutput)
}

func decodeJSONObject(s string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &data); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, s)
	}
	return data, nil
}

// theJSONShouldContain verifies the JSON output has a field.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	_, err = lookupField(data, field)
	return err
}

// theJSONFieldShouldEqual compares a field's printed value.
func (testCtx *TestContext) theJSONFieldShouldEqual(field, expected string) error {
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	return fieldEquals(data, field, expected)
}

func fieldEquals(data map[string]any, field, expected string) error {
	val, err := lookupField(data, field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(val); got != expected {
		return fmt.Errorf("field '%s' is %q, expected %q", field, got, expected)
	}
	return nil
}

// lookupField follows a dotted path; numeric parts index arrays.
func lookupField(data map[string]any, field string) (any, error) {
	var current any = data
	parts := strings.Split(field, ".")
	for i, part := range parts {
		switch node := current.(type) {
		case map[string]any:
			val, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field '%s' not found in JSON", strings.Join(parts[:i+1], "."))
			}
			current = val
		case []any:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("invalid index '%s' in '%s'", part, field)
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("cannot navigate deeper into non-object field '%s'", strings.Join(parts[:i], "."))
		}
	}
	return current, nil
}

// theErrorShouldMention verifies the error message contains specific text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}
	full := testCtx.LastError.Error() + " " + testCtx.LastStderr
	if !strings.Contains(strings.ToLower(full), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, full)
	}
	return nil
}

// aFileContaining writes raw content, for malformed inputs and configs.
func (testCtx *TestContext) aFileContaining(name string, content *godog.DocString) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content.Content), 0o600)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, text string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), text) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", name, text, data)
	}
	return nil
}

// RegisterCommonSteps registers the command and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	// Command execution
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^I run "([^"]*)" with stdin from "([^"]*)"$`, testCtx.iRunCommandWithStdinFrom)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)

	// Output checks
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be:$`, testCtx.theOutputShouldBe)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should equal "([^"]*)"$`, testCtx.theJSONFieldShouldEqual)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)

	// Files and environment
	sc.Step(`^a file "([^"]*)" containing:$`, testCtx.aFileContaining)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.SetEnv)
}
