package projector

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/export"
)

// Exporter serializes a {schema, rows} table into a downloadable artifact.
type Exporter interface {
	Export(ctx context.Context, columns []string, rows [][]string) ([]byte, error)
	MIMEType() string
	Extension() string
}

// Artifact is an export ready to be delivered; the caller decides how to persist it.
type Artifact struct {
	Bytes    []byte
	Filename string
	MIMEType string
}

// Projector appends committed rows to a dataset and hands datasets to the exporter.
// It keeps no state between calls.
type Projector struct {
	exporter Exporter
	logger   *slog.Logger
}

func New(exporter Exporter, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	return &Projector{exporter: exporter, logger: logger}
}

// Commit returns dataset with row appended; the schema is unchanged.
func (p *Projector) Commit(dataset entity.Dataset, row entity.Row) (entity.Dataset, error) {
	return dataset.Append(row)
}

// CommitAll checks every row against the schema before appending any, then appends them
// one at a time in order. On error the input dataset is returned unchanged.
func (p *Projector) CommitAll(dataset entity.Dataset, rows []entity.Row) (entity.Dataset, error) {
	want := dataset.Schema().Len()
	for _, r := range rows {
		if len(r) != want {
			return dataset, &common.SchemaMismatchError{Want: want, Got: len(r)}
		}
	}
	next := dataset
	for _, r := range rows {
		var err error
		if next, err = next.Append(r); err != nil {
			return dataset, err
		}
	}
	p.logger.Debug("projector.commit", "rows", len(rows), "total", next.Len())
	return next, nil
}

// Export passes the dataset's {schema, rows} to the exporter. sourceFilename is the schema
// workbook the suggested name derives from.
func (p *Projector) Export(ctx context.Context, dataset entity.Dataset, sourceFilename string) (Artifact, error) {
	if dataset.Schema().IsEmpty() {
		return Artifact{}, common.NewAppError("EXPORT_ERROR", "dataset has no schema", common.ErrExport)
	}
	b, err := p.exporter.Export(ctx, dataset.Schema().Columns(), dataset.Values())
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Bytes:    b,
		Filename: export.SuggestedFilename(sourceFilename, p.exporter.Extension()),
		MIMEType: p.exporter.MIMEType(),
	}, nil
}
