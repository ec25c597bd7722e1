package ingest_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/ingest"
	"github.com/joseph-ayodele/docrows/internal/logging"
)

// minimalPDF writes a structurally valid PDF with the given number of empty pages.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for range pages {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func newIngestor() *ingest.FSIngestor {
	n := 0
	return ingest.NewFSIngestor(
		ingest.WithLogger(logging.NewNop()),
		ingest.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("doc-%d", n)
		}),
	)
}

func TestFromBytes(t *testing.T) {
	i := newIngestor()
	ctx := context.Background()

	doc, err := i.FromBytes(ctx, "cao.pdf", minimalPDF(2))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "cao.pdf", doc.Name)
	assert.Equal(t, constants.PDF, doc.Format)
	assert.Equal(t, constants.MIMEPDF, doc.ContentType)
	assert.Equal(t, 2, doc.Pages)
	assert.Equal(t, ingest.HashHex(doc.Content), doc.HashHex)

	doc, err = i.FromBytes(ctx, "notes.TXT", []byte("looptijd: 2024-2026"))
	require.NoError(t, err)
	assert.Equal(t, constants.TXT, doc.Format)
	assert.Equal(t, constants.MIMEText, doc.ContentType)
	assert.Equal(t, 1, doc.Pages)
	assert.EqualValues(t, 19, doc.Size)

	doc, err = i.FromBytes(ctx, "scan.png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.ContentType)
}

func TestFromBytes_Rejects(t *testing.T) {
	i := ingest.NewFSIngestor(ingest.WithLogger(logging.NewNop()), ingest.WithMaxBytes(1024))
	tests := []struct {
		name    string
		file    string
		content []byte
	}{
		{name: "unsupported extension", file: "data.docx", content: []byte("x")},
		{name: "no extension", file: "README", content: []byte("x")},
		{name: "empty", file: "a.txt", content: nil},
		{name: "too large", file: "a.txt", content: bytes.Repeat([]byte("x"), 1025)},
		{name: "not a pdf", file: "a.pdf", content: []byte("hello")},
		{name: "broken pdf", file: "a.pdf", content: []byte("%PDF-1.4\ngarbage")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := i.FromBytes(context.Background(), tt.file, tt.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrUpload)
		})
	}
}

func TestFromBytes_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newIngestor().FromBytes(ctx, "a.txt", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agreement.pdf")
	require.NoError(t, os.WriteFile(path, minimalPDF(1), 0o600))

	doc, err := newIngestor().FromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "agreement.pdf", doc.Name)
	assert.Equal(t, 1, doc.Pages)

	_, err = newIngestor().FromFile(context.Background(), filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, common.ErrUpload)
}

func TestIngestDirectory(t *testing.T) {
	root := t.TempDir()
	write := func(rel string, content []byte) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, content, 0o600))
	}
	write("a.txt", []byte("first"))
	write("sub/b.txt", []byte("second"))
	write("sub/copy.txt", []byte("first"))
	write("bad.pdf", []byte("nope"))
	write("skip.docx", []byte("ignored"))
	write(".hidden/c.txt", []byte("hidden"))

	results, stats, err := newIngestor().IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)

	assert.EqualValues(t, 4, stats.Matched)
	assert.EqualValues(t, 2, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Duplicate)
	assert.EqualValues(t, 1, stats.Failed)

	var names []string
	for _, r := range results {
		if r.Err == "" {
			names = append(names, r.Document.Name)
		}
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)

	_, _, err = newIngestor().IngestDirectory(context.Background(), " ", false)
	assert.Error(t, err)
}

func TestHelpers(t *testing.T) {
	assert.True(t, ingest.AllowedExt(".PDF"))
	assert.True(t, ingest.AllowedExt("jpeg"))
	assert.False(t, ingest.AllowedExt("xlsx"))
	assert.True(t, ingest.IsHidden("/tmp/.git"))
	assert.False(t, ingest.IsHidden("."))
	assert.Len(t, ingest.HashHex([]byte("x")), 64)
}
