package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docrows/internal/common"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{common.UploadError("bad"), 2},
		{common.TransitionError("commit", "Idle", "no rows"), 3},
		{common.NewExtractionError(context.DeadlineExceeded), 4},
		{common.NewExtractionError(errors.New("502")), 5},
		{common.NewExtractionError(context.Canceled), 130},
		{errors.New("disk full"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func writeSchema(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Filename", "Name", "Travel_Allowance"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"old.pdf", "Old CLA", "-"}))
	require.NoError(t, f.SaveAs(path))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand_RemoteProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"acme.txt": {"Name": "Acme CLA", "travel cost": "€0.23/km"}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("EXTRACTION_PROVIDER=remote\nEXTRACTION_URL="+srv.URL+"\n"), 0o600))
	schema := filepath.Join(dir, "cao.xlsx")
	writeSchema(t, schema)
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "acme.txt"), []byte("Acme collective agreement"), 0o600))
	out := filepath.Join(dir, "result.xlsx")

	stdout, err := execute(t, "run", "--env-file", envFile, "--log-level", "error",
		"--schema", schema, "--out", out, docs)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Processed 1 document(s)")
	assert.Contains(t, stdout, "Rows in sheet: 2")

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Processed")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Filename", "Name", "Travel_Allowance"},
		{"old.pdf", "Old CLA", "-"},
		{"acme.txt", "Acme CLA", "€0.23/km"},
	}, rows)
}

func TestRulesCheckCommand(t *testing.T) {
	stdout, err := execute(t, "rules", "check", "PDF_Filename", "Travel_Allowance", "Zzz")
	require.NoError(t, err)
	assert.Contains(t, stdout, "(source file)")
	assert.Contains(t, stdout, "travel_allowance")
	assert.Contains(t, stdout, "closest_key")
}

func TestVersionCommand(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "docrows version dev\n", stdout)
}
