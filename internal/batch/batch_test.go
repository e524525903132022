package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/readout/internal/testutil"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietConfig() *Config {
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.Quiet = true
	return cfg
}

func writeReadouts(t *testing.T, dir string, n int) []string {
	t.Helper()
	paths := make([]string, n)
	for i := range paths {
		name := filepath.Base(t.Name()) + "_" + string(rune('a'+i)) + ".json"
		paths[i] = testutil.WriteBundle(t, dir, name, testutil.ReadoutBundle())
	}
	return paths
}

func TestProcessBatch_NoFiles(t *testing.T) {
	result, err := ProcessBatch(context.Background(), []string{t.TempDir()}, quietConfig())
	require.ErrorIs(t, err, ErrNoInputFiles)
	assert.Nil(t, result)
}

func TestProcessBatch_InvalidPath(t *testing.T) {
	result, err := ProcessBatch(context.Background(), []string{"/nonexistent/file.json"}, quietConfig())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestProcessBatch_InvalidExtractionConfig(t *testing.T) {
	cfg := quietConfig()
	cfg.Extraction.Matcher.MaxColumnOffset = 0

	_, err := ProcessBatch(context.Background(), []string{t.TempDir()}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid extraction config")
}

func TestProcessBatch_OrderedResults(t *testing.T) {
	dir := t.TempDir()
	paths := writeReadouts(t, dir, 6)
	testutil.WriteBundle(t, dir, "z.yaml", testutil.ReadoutBundle())

	result, err := ProcessBatch(context.Background(), []string{dir}, quietConfig())
	require.NoError(t, err)
	require.Len(t, result.Entries, 7)
	assert.Equal(t, append(paths, filepath.Join(dir, "z.yaml")), result.Files)

	for i, e := range result.Entries {
		assert.Equal(t, result.Files[i], e.File)
		require.NoError(t, e.Err)
		assert.Equal(t, testutil.ReadoutRecord(), e.Result.Record.Map())
	}
	assert.Equal(t, 2, result.WorkerCount)

	stats := result.Stats()
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 7, stats.Processed)
	assert.Equal(t, 14, stats.Keys)
	assert.Equal(t, 7, stats.Unmatched)
}

func TestProcessBatch_StopsOnError(t *testing.T) {
	dir := t.TempDir()
	writeReadouts(t, dir, 2)
	testutil.WriteFile(t, dir, "broken.json", `{"rec_texts": ["1"], "rec_scores": [], "rec_polys": []}`)

	cfg := quietConfig()
	cfg.Workers = 1
	result, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.Error(t, err)
	require.ErrorIs(t, err, tokens.ErrMalformedInput)
	assert.Nil(t, result)
}

func TestProcessBatch_ContinueOnError(t *testing.T) {
	dir := t.TempDir()
	writeReadouts(t, dir, 2)
	broken := testutil.WriteFile(t, dir, "broken.json", `{"rec_texts": ["1"], "rec_scores": [], "rec_polys": []}`)

	cfg := quietConfig()
	cfg.ContinueOnError = true
	result, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Entries, 3)

	assert.Equal(t, broken, result.Entries[2].File)
	require.ErrorIs(t, result.Entries[2].Err, tokens.ErrMalformedInput)
	assert.Nil(t, result.Entries[2].Result)

	stats := result.Stats()
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
}

func TestProcessBatch_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeReadouts(t, dir, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ProcessBatch(ctx, []string{dir}, quietConfig())
	require.ErrorIs(t, err, context.Canceled)
}

type recordingProgress struct {
	mu       sync.Mutex
	started  int
	progress []int
	errors   int
	done     bool
}

func (r *recordingProgress) OnStart(total int) { r.started = total }
func (r *recordingProgress) OnProgress(current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, current)
}
func (r *recordingProgress) OnComplete() { r.done = true }
func (r *recordingProgress) OnError(current int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
}

func TestProcessBatch_ReportsProgress(t *testing.T) {
	dir := t.TempDir()
	writeReadouts(t, dir, 4)
	testutil.WriteFile(t, dir, "broken.json", `not json`)

	rec := &recordingProgress{}
	cfg := quietConfig()
	cfg.ContinueOnError = true
	cfg.Progress = rec

	_, err := ProcessBatch(context.Background(), []string{dir}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.started)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, rec.progress)
	assert.Equal(t, 1, rec.errors)
	assert.True(t, rec.done)
}

func TestResult_SaveResults(t *testing.T) {
	dir := t.TempDir()
	writeReadouts(t, dir, 2)
	result, err := ProcessBatch(context.Background(), []string{dir}, quietConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, result.SaveResults(&buf, "json", "", false, false))
	var doc struct {
		Files []struct {
			File   string         `json:"file"`
			Result map[string]any `json:"result"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Files, 2)
	assert.Equal(t, result.Files[0], doc.Files[0].File)

	out := filepath.Join(t.TempDir(), "results.txt")
	buf.Reset()
	require.NoError(t, result.SaveResults(&buf, "text", out, false, false))
	assert.Contains(t, buf.String(), "Results written to")
	assert.True(t, testutil.FileExists(out))

	buf.Reset()
	require.NoError(t, result.SaveResults(&buf, "text", out, false, true))
	assert.Empty(t, buf.String())

	require.Error(t, result.SaveResults(&buf, "csv", "", false, true))
}

func TestResult_PrintStats(t *testing.T) {
	result := &Result{Files: []string{"a.json"}, Duration: 2 * time.Second, WorkerCount: 3}
	var buf bytes.Buffer
	result.PrintStats(&buf)

	assert.Contains(t, buf.String(), "Total files: 1")
	assert.Contains(t, buf.String(), "Workers: 3")
	assert.Contains(t, buf.String(), "Throughput: 0.0 files/sec")
}
