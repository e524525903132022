package support

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MeKo-Tech/readout/internal/testutil"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/cucumber/godog"
	"gopkg.in/yaml.v3"
)

// writeBundle stores b under the working directory, encoded by extension.
func (testCtx *TestContext) writeBundle(name string, b *tokens.Bundle) error {
	path := testCtx.Path(name)
	format, err := tokens.FormatFromPath(path)
	if err != nil {
		return err
	}
	var data []byte
	if format == tokens.FormatYAML {
		data, err = yaml.Marshal(b)
	} else {
		data, err = json.MarshalIndent(b, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// theTreadmillBundle writes the reference treadmill readout.
func (testCtx *TestContext) theTreadmillBundle(name string) error {
	return testCtx.writeBundle(name, testutil.ReadoutBundle())
}

// aBundleWithTokens builds a bundle from a text/x/y[/confidence] table.
func (testCtx *TestContext) aBundleWithTokens(name string, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("bundle %s has no token rows", name)
	}
	columns := map[string]int{}
	for i, cell := range table.Rows[0].Cells {
		columns[cell.Value] = i
	}
	for _, col := range []string{"text", "x", "y"} {
		if _, ok := columns[col]; !ok {
			return fmt.Errorf("token table needs a %q column", col)
		}
	}

	bb := testutil.NewBundle(name)
	for _, row := range table.Rows[1:] {
		cell := func(col string) string { return row.Cells[columns[col]].Value }
		x, err := strconv.ParseFloat(cell("x"), 64)
		if err != nil {
			return fmt.Errorf("bad x %q: %w", cell("x"), err)
		}
		y, err := strconv.ParseFloat(cell("y"), 64)
		if err != nil {
			return fmt.Errorf("bad y %q: %w", cell("y"), err)
		}
		conf := 0.99
		if i, ok := columns["confidence"]; ok {
			if conf, err = strconv.ParseFloat(row.Cells[i].Value, 64); err != nil {
				return fmt.Errorf("bad confidence %q: %w", row.Cells[i].Value, err)
			}
		}
		bb.AddScored(cell("text"), conf, x, y)
	}
	return testCtx.writeBundle(name, bb.Build())
}

// theRecordShouldBe compares the record of the JSON output with a
// key/value table, in order.
func (testCtx *TestContext) theRecordShouldBe(table *godog.Table) error {
	raw := struct {
		Record json.RawMessage `json:"record"`
	}{}
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &raw); err != nil {
		return fmt.Errorf("output is not a JSON summary: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	keys, values, err := orderedObject(raw.Record)
	if err != nil {
		return err
	}

	rows := table.Rows[1:]
	if len(rows) != len(keys) {
		return fmt.Errorf("record has %d keys %v, expected %d", len(keys), keys, len(rows))
	}
	for i, row := range rows {
		wantKey, wantVal := row.Cells[0].Value, row.Cells[1].Value
		if keys[i] != wantKey {
			return fmt.Errorf("key %d is %q, expected %q", i, keys[i], wantKey)
		}
		if values[i] != wantVal {
			return fmt.Errorf("value of %q is %s, expected %s", wantKey, values[i], wantVal)
		}
	}
	return nil
}

// orderedObject returns the keys of a JSON object in document order with
// their raw encoded values.
func orderedObject(data json.RawMessage) ([]string, []string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, nil, fmt.Errorf("failed to parse record: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil, nil
	}
	m := node.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("record is not an object: %s", data)
	}
	var keys, values []string
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
		values = append(values, m.Content[i+1].Value)
	}
	return keys, values, nil
}

// theRecordShouldBeEmpty checks the JSON output's record has no keys.
func (testCtx *TestContext) theRecordShouldBeEmpty() error {
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	rec, ok := data["record"].(map[string]any)
	if !ok {
		return fmt.Errorf("output has no record object: %s", testCtx.LastOutput)
	}
	if len(rec) != 0 {
		return fmt.Errorf("record is not empty: %v", rec)
	}
	return nil
}

// RegisterExtractSteps registers the bundle fixture and record steps.
func (testCtx *TestContext) RegisterExtractSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the treadmill bundle "([^"]*)"$`, testCtx.theTreadmillBundle)
	sc.Step(`^a bundle "([^"]*)" with tokens:$`, testCtx.aBundleWithTokens)
	sc.Step(`^the record should be:$`, testCtx.theRecordShouldBe)
	sc.Step(`^the record should be empty$`, testCtx.theRecordShouldBeEmpty)
}
