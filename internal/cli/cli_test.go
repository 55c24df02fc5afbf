package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const essay = "Prior work (Smith, 2020) showed X. Later (Brown, 2019) disagreed.\n\nReferences\nSmith, J. Title. 2020.\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.md", essay)
	b := writeFile(t, dir, "nested/b.txt", essay)
	writeFile(t, dir, "nested/old/c.txt", essay)
	writeFile(t, dir, "image.png", "x")

	files, err := expandPaths([]string{dir}, []string{"**/old/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	files, err = expandPaths([]string{filepath.Join(dir, "**", "*.txt"), b}, nil)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = expandPaths([]string{filepath.Join(dir, "*.pdf")}, nil)
	assert.Error(t, err)
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "essay.txt", essay)

	out, err := run(t, "scan", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 linked, 1 orphan")
	assert.Contains(t, out, "orphan (Brown, 2019)")

	_, err = run(t, "scan", path, "--fail-on-orphan")
	assert.EqualError(t, err, "1 orphan citations")
}

func TestScanCommandJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "essay.md", "# Essay\n\nAs shown (Smith, 2020).\n\n## References\n\nSmith, J. Title. 2020.\n")
	writeFile(t, dir, "empty.txt", "   ")

	out, err := run(t, "scan", dir, "--json")
	require.NoError(t, err)

	var reports []scanReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.NotEmpty(t, reports[0].Error)
	assert.Equal(t, path, reports[1].Path)
	assert.Equal(t, 1, reports[1].Stats.Linked)
	assert.Equal(t, []string{"smith"}, reports[1].References)
}

func TestLocateCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "essay.txt", essay)

	out, err := run(t, "locate", path, "-t", "Prior work", "-t", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, `"Prior work": 1-11 (1 occurrences)`)
	assert.Contains(t, out, `"missing": not found`)

	_, err = run(t, "locate", path)
	assert.Error(t, err)
}

func TestAuditCommandDryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "essay.txt", essay)

	out, err := run(t, "audit", path, "--style", "mla", "--dry-run")
	require.NoError(t, err)
	var req map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &req))
	assert.Equal(t, "MLA", req["declaredStyle"])

	_, err = run(t, "audit", path, "--style", "vancouver", "--dry-run")
	assert.Error(t, err)
}

func TestAuditCommandCallsBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cli-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"flags":[{"type":"INLINE_STYLE","ruleId":"APA.1","message":"Use an ampersand"}]}`))
	}))
	defer srv.Close()
	t.Setenv("AUDIT_BACKEND_URL", srv.URL)
	t.Setenv("AUDIT_API_KEY", "cli-key")

	dir := t.TempDir()
	path := writeFile(t, dir, "essay.txt", essay)

	out, err := run(t, "audit", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit complete! Found 1 citation issues.")
	assert.Contains(t, out, "[APA.1] Use an ampersand")
}

func TestAuditCommandFailureExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	t.Setenv("AUDIT_BACKEND_URL", srv.URL)

	dir := t.TempDir()
	path := writeFile(t, dir, "essay.txt", essay)

	out, err := run(t, "audit", path)
	assert.EqualError(t, err, "audit FAILED_SCAN_ABORTED")
	assert.Contains(t, out, "boom")
}
