package projector_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/logging"
	"github.com/joseph-ayodele/docrows/internal/projector"
)

type recordingExporter struct {
	columns []string
	rows    [][]string
	err     error
}

func (r *recordingExporter) Export(_ context.Context, columns []string, rows [][]string) ([]byte, error) {
	r.columns, r.rows = columns, rows
	if r.err != nil {
		return nil, r.err
	}
	return []byte("artifact"), nil
}

func (r *recordingExporter) MIMEType() string  { return "text/csv" }
func (r *recordingExporter) Extension() string { return "csv" }

func newDataset(t *testing.T, cols []string, rows ...entity.Row) entity.Dataset {
	t.Helper()
	d, err := entity.NewDataset(entity.MustSchema(cols...), rows...)
	require.NoError(t, err)
	return d
}

func TestCommit_Appends(t *testing.T) {
	p := projector.New(&recordingExporter{}, logging.NewNop())
	d := newDataset(t, []string{"A", "B"}, entity.Row{"1", "2"})

	next, err := p.Commit(d, entity.Row{"3", constants.SentinelNotFound})
	require.NoError(t, err)

	assert.Equal(t, []entity.Row{{"1", "2"}, {"3", constants.SentinelNotFound}}, next.Rows())
	assert.True(t, next.Schema().Equal(d.Schema()))
	assert.Equal(t, 1, d.Len())
}

func TestCommit_SchemaMismatch(t *testing.T) {
	p := projector.New(&recordingExporter{}, logging.NewNop())
	d := newDataset(t, []string{"A", "B"})

	next, err := p.Commit(d, entity.Row{"1", "2", "3"})
	require.Error(t, err)

	var mismatch *common.SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Want)
	assert.Equal(t, 3, mismatch.Got)
	assert.ErrorIs(t, err, common.ErrSchemaMismatch)
	assert.Equal(t, 0, next.Len())
	assert.Equal(t, 0, d.Len())
}

func TestCommitAll_AllOrNothing(t *testing.T) {
	p := projector.New(&recordingExporter{}, logging.NewNop())
	d := newDataset(t, []string{"A"}, entity.Row{"seed"})

	next, err := p.CommitAll(d, []entity.Row{{"1"}, {"2", "extra"}, {"3"}})
	assert.ErrorIs(t, err, common.ErrSchemaMismatch)
	assert.Equal(t, []entity.Row{{"seed"}}, next.Rows())

	next, err = p.CommitAll(d, []entity.Row{{"1"}, {"2"}})
	require.NoError(t, err)
	assert.Equal(t, []entity.Row{{"seed"}, {"1"}, {"2"}}, next.Rows())
}

func TestExport_PassesSchemaAndRows(t *testing.T) {
	rec := &recordingExporter{}
	p := projector.New(rec, logging.NewNop())
	d := newDataset(t, []string{"Name", "Salary"}, entity.Row{"Acme", "4000"})

	art, err := p.Export(context.Background(), d, "salaries.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Salary"}, rec.columns)
	assert.Equal(t, [][]string{{"Acme", "4000"}}, rec.rows)
	assert.Equal(t, projector.Artifact{Bytes: []byte("artifact"), Filename: "salaries_processed.csv", MIMEType: "text/csv"}, art)
}

func TestExport_Errors(t *testing.T) {
	boom := errors.New("disk full")
	p := projector.New(&recordingExporter{err: boom}, logging.NewNop())

	_, err := p.Export(context.Background(), newDataset(t, []string{"A"}), "x.xlsx")
	assert.ErrorIs(t, err, boom)

	_, err = p.Export(context.Background(), entity.Dataset{}, "x.xlsx")
	assert.ErrorIs(t, err, common.ErrExport)
}

func TestExport_DefaultExporterWritesXLSX(t *testing.T) {
	p := projector.New(nil, logging.NewNop())
	art, err := p.Export(context.Background(), newDataset(t, []string{"A"}, entity.Row{"1"}), "")
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultExportName, art.Filename)
	assert.Equal(t, constants.MIMEXLSX, art.MIMEType)
	assert.NotEmpty(t, art.Bytes)
}
