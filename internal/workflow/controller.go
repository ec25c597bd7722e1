package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/eventlog"
	"github.com/joseph-ayodele/docrows/internal/extraction"
	"github.com/joseph-ayodele/docrows/internal/mapping"
	"github.com/joseph-ayodele/docrows/internal/projector"
	"github.com/joseph-ayodele/docrows/internal/rowbuilder"
)

// Event log actions.
const (
	ActionLoadSchema        = "load_schema"
	ActionLoadDocuments     = "load_documents"
	ActionExtractionStarted = "extraction_started"
	ActionExtraction        = "extraction"
	ActionMappingGap        = "mapping_gap"
	ActionCommit            = "commit"
	ActionReset             = "reset"
	ActionExport            = "export"
)

// DefaultExtractionTimeout bounds one extraction call when no timeout is configured.
const DefaultExtractionTimeout = 3 * time.Minute

// ExtractionObserver is told about every finished extraction call.
type ExtractionObserver interface {
	ObserveExtraction(documents int, elapsed time.Duration, err error)
}

// Controller sequences one session's workflow. It owns the session's event log; all
// workflow data travels in State values.
type Controller struct {
	service     extraction.Service
	builder     *rowbuilder.Builder
	projector   *projector.Projector
	log         *eventlog.Log
	timeout     time.Duration
	rejectEmpty bool
	observer    ExtractionObserver
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithExtractionTimeout bounds each extraction call. Non-positive disables the deadline.
func WithExtractionTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithRejectEmptyRows refuses to commit candidates that received no extracted value.
func WithRejectEmptyRows(reject bool) Option {
	return func(c *Controller) { c.rejectEmpty = reject }
}

// WithBuilder replaces the default row builder.
func WithBuilder(b *rowbuilder.Builder) Option {
	return func(c *Controller) {
		if b != nil {
			c.builder = b
		}
	}
}

// WithProjector replaces the default projector.
func WithProjector(p *projector.Projector) Option {
	return func(c *Controller) {
		if p != nil {
			c.projector = p
		}
	}
}

// WithEventLog sets the log transitions are recorded in.
func WithEventLog(l *eventlog.Log) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock sets the clock of the default event log. It has no effect with WithEventLog.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithExtractionObserver registers an observer for extraction timing.
func WithExtractionObserver(o ExtractionObserver) Option {
	return func(c *Controller) { c.observer = o }
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController wires service into a controller with the default mapper, builder and
// XLSX projector unless options replace them.
func NewController(service extraction.Service, opts ...Option) *Controller {
	c := &Controller{
		service: service,
		timeout: DefaultExtractionTimeout,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.builder == nil {
		c.builder = rowbuilder.NewBuilder(mapping.NewMapper(nil), rowbuilder.WithLogger(c.logger))
	}
	if c.projector == nil {
		c.projector = projector.New(nil, c.logger)
	}
	if c.log == nil {
		logOpts := []eventlog.Option{eventlog.WithLogger(c.logger)}
		if c.now != nil {
			logOpts = append(logOpts, eventlog.WithClock(c.now))
		}
		c.log = eventlog.New(logOpts...)
	}
	return c
}

// Log is the controller's event log.
func (c *Controller) Log() *eventlog.Log { return c.log }

// LoadSchema selects columns from src (all when selection is empty) and makes them the
// session schema. Source rows projected onto the schema seed the dataset. Replacing a
// schema discards documents, extractions, candidates and the previous dataset.
func (c *Controller) LoadSchema(st State, src entity.SchemaSource, selection []string) (State, error) {
	to, err := c.guard(ActionLoadSchema, st, TriggerLoadSchema)
	if err != nil {
		return st, err
	}

	schema, err := src.Select(selection)
	if err != nil {
		return st, c.fail(ActionLoadSchema, err)
	}
	seed, err := src.Project(schema)
	if err != nil {
		return st, c.fail(ActionLoadSchema, err)
	}
	dataset, err := entity.NewDataset(schema, seed...)
	if err != nil {
		return st, c.fail(ActionLoadSchema, err)
	}

	next := NewState()
	next.Stage = to
	next.Source = src
	next.Schema = schema
	next.Dataset = dataset
	next = next.Clone()

	verb := "loaded"
	if st.HasSchema() {
		verb = "replaced"
	}
	c.log.Success(ActionLoadSchema, fmt.Sprintf("schema %s from %q: %d columns (%s), %d existing rows",
		verb, src.Filename, schema.Len(), summarize(schema.Columns(), 8), dataset.Len()))
	return next, nil
}

// LoadDocuments appends docs to the session. Every document must be valid and its ID
// unused; otherwise nothing is added.
func (c *Controller) LoadDocuments(st State, docs []entity.Document) (State, error) {
	if st.Stage == constants.StageIdle {
		return st, c.reject(ActionLoadDocuments, st, "no schema loaded")
	}
	to, err := c.guard(ActionLoadDocuments, st, TriggerLoadDocuments)
	if err != nil {
		return st, err
	}
	if len(docs) == 0 {
		return st, c.fail(ActionLoadDocuments, common.UploadError("no documents given"))
	}

	seen := make(map[string]bool, len(st.Documents)+len(docs))
	for _, d := range st.Documents {
		seen[d.ID] = true
	}
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		if err := d.Validate(); err != nil {
			return st, c.fail(ActionLoadDocuments, err)
		}
		if seen[d.ID] {
			return st, c.fail(ActionLoadDocuments, common.UploadError("document %q is already loaded", d.Name))
		}
		seen[d.ID] = true
		names = append(names, d.Name)
	}

	next := st.Clone()
	next.Stage = to
	next.Documents = append(next.Documents, docs...)
	c.log.Success(ActionLoadDocuments, fmt.Sprintf("%d document(s) added (%s), %d total",
		len(docs), summarize(names, 5), len(next.Documents)))
	return next, nil
}

// BeginExtraction moves a session with documents to Extracting.
func (c *Controller) BeginExtraction(st State) (State, error) {
	to, err := c.guard(ActionExtractionStarted, st, TriggerBeginExtraction)
	if err != nil {
		return st, err
	}
	if len(st.Documents) == 0 {
		return st, c.reject(ActionExtractionStarted, st, "no documents loaded")
	}
	if !st.HasSchema() {
		return st, c.reject(ActionExtractionStarted, st, "no schema loaded")
	}

	next := st.Clone()
	next.Stage = to
	c.log.Info(ActionExtractionStarted, fmt.Sprintf("extracting %d column(s) from %d document(s)",
		st.Schema.Len(), len(st.Documents)))
	return next, nil
}

// CompleteExtraction applies the outcome of an extraction call to an Extracting state.
// On failure the session returns to DocumentsLoaded with schema and documents intact; on
// success every document is mapped to a candidate row in submission order.
func (c *Controller) CompleteExtraction(st State, resp extraction.Response, callErr error) (State, error) {
	if st.Stage != constants.StageExtracting {
		return st, c.reject(ActionExtraction, st, "no extraction in progress")
	}

	if callErr != nil {
		return c.extractionFailed(st, common.NewExtractionError(callErr))
	}

	results := make(map[string]entity.ExtractionResult, len(st.Documents))
	for _, d := range st.Documents {
		results[d.ID] = entity.NewExtractionResult(d.ID, resp[d.ID])
	}
	candidates, err := c.builder.BuildAll(st.Schema, st.Documents, results)
	if err != nil {
		return c.extractionFailed(st, common.NewExtractionError(err))
	}

	to, _ := Next(st.Stage, TriggerExtractionSucceeded)
	next := st.Clone()
	next.Stage = to
	next.Extractions = results
	next.Candidates = candidates

	found, missing := 0, 0
	for _, cand := range candidates {
		found += cand.Found
		missing += cand.Missing
	}
	c.log.Success(ActionExtraction, fmt.Sprintf("%d row(s) mapped: %d cell(s) filled, %d not found",
		len(candidates), found, missing))
	for _, cand := range candidates {
		if len(cand.Gaps) > 0 {
			c.log.Info(ActionMappingGap, fmt.Sprintf("%s: no value for %s", cand.DocumentName, summarize(cand.Gaps, 10)))
		}
	}
	return next, nil
}

// Extract runs BeginExtraction, calls the extraction service under the configured
// deadline and completes with its outcome. Cancellation of ctx and the deadline both
// count as failures, even if the service ignores its context.
func (c *Controller) Extract(ctx context.Context, st State) (State, error) {
	extracting, err := c.BeginExtraction(st)
	if err != nil {
		return st, err
	}
	return c.runExtraction(ctx, extracting)
}

// runExtraction calls the service for an Extracting state and completes it.
func (c *Controller) runExtraction(ctx context.Context, extracting State) (State, error) {
	ctx, cancel := common.WithTimeout(ctx, c.timeout)
	defer cancel()
	if common.RequestIDFromContext(ctx) == "" {
		ctx = common.WithRequestID(ctx, uuid.NewString())
	}
	c.logger.Debug("workflow.extract.call",
		"request_id", common.RequestIDFromContext(ctx),
		"session_id", common.SessionIDFromContext(ctx),
		"documents", len(extracting.Documents),
		"timeout", c.timeout,
	)

	start := time.Now()
	resp, callErr := c.call(ctx, extraction.Request{
		Documents: extracting.Documents,
		Columns:   extracting.Schema.Columns(),
	})
	if c.observer != nil {
		c.observer.ObserveExtraction(len(extracting.Documents), time.Since(start), callErr)
	}
	return c.CompleteExtraction(extracting, resp, callErr)
}

type callResult struct {
	resp extraction.Response
	err  error
}

func (c *Controller) call(ctx context.Context, req extraction.Request) (extraction.Response, error) {
	if c.service == nil {
		return nil, errors.New("no extraction service configured")
	}
	done := make(chan callResult, 1)
	go func() {
		resp, err := c.service.Extract(ctx, req)
		done <- callResult{resp, err}
	}()
	select {
	case r := <-done:
		if r.err == nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Controller) extractionFailed(st State, err *common.ExtractionError) (State, error) {
	to, _ := Next(st.Stage, TriggerExtractionFailed)
	next := st.Clone()
	next.Stage = to
	next.Extractions = nil
	next.Candidates = nil
	c.log.Error(ActionExtraction, fmt.Sprintf("%v; %d document(s) kept for retry", err, len(next.Documents)))
	return next, err
}

// Commit appends every candidate row to the dataset, one at a time in submission order.
// Nothing is appended when any row is rejected.
func (c *Controller) Commit(st State) (State, error) {
	to, err := c.guard(ActionCommit, st, TriggerCommit)
	if err != nil {
		return st, err
	}
	if len(st.Candidates) == 0 {
		return st, c.reject(ActionCommit, st, "no rows to commit")
	}
	if c.rejectEmpty {
		for _, cand := range st.Candidates {
			if extracted(cand) == 0 {
				return st, c.fail(ActionCommit, common.NewAppError("EMPTY_ROW",
					fmt.Sprintf("row for %q has no extracted values", cand.DocumentName), common.ErrEmptyRow))
			}
		}
	}

	dataset, err := c.projector.CommitAll(st.Dataset, st.Rows())
	if err != nil {
		return st, c.fail(ActionCommit, err)
	}

	next := st.Clone()
	next.Stage = to
	next.Dataset = dataset
	c.log.Success(ActionCommit, fmt.Sprintf("%d row(s) committed, dataset has %d row(s)",
		len(st.Candidates), dataset.Len()))
	return next, nil
}

// Reset discards documents, extractions and candidates, keeping schema and dataset.
// With dropSchema the session returns to Idle and everything is discarded.
func (c *Controller) Reset(st State, dropSchema bool) (State, error) {
	trigger := TriggerReset
	if dropSchema {
		trigger = TriggerClear
	}
	to, err := c.guard(ActionReset, st, trigger)
	if err != nil {
		return st, err
	}

	var next State
	if dropSchema {
		next = NewState()
		c.log.Success(ActionReset, fmt.Sprintf("session cleared from %s", st.Stage))
	} else {
		next = st.Clone()
		next.Stage = to
		next.Documents = nil
		next.Extractions = nil
		next.Candidates = nil
		c.log.Success(ActionReset, fmt.Sprintf("reset from %s: %d document(s) discarded, dataset keeps %d row(s)",
			st.Stage, len(st.Documents), st.Dataset.Len()))
	}
	return next, nil
}

// Export serializes the current dataset. It does not change the stage.
func (c *Controller) Export(ctx context.Context, st State) (projector.Artifact, error) {
	switch {
	case st.Stage == constants.StageExtracting:
		return projector.Artifact{}, c.reject(ActionExport, st, "extraction in progress")
	case !st.HasSchema():
		return projector.Artifact{}, c.reject(ActionExport, st, "no schema loaded")
	}
	art, err := c.projector.Export(ctx, st.Dataset, st.Source.Filename)
	if err != nil {
		return projector.Artifact{}, c.fail(ActionExport, err)
	}
	c.log.Success(ActionExport, fmt.Sprintf("%s: %d row(s), %d bytes", art.Filename, st.Dataset.Len(), len(art.Bytes)))
	return art, nil
}

// guard resolves the transition or logs and returns the rejection.
func (c *Controller) guard(action string, st State, trigger Trigger) (constants.Stage, error) {
	to, ok := Next(st.Stage, trigger)
	if !ok {
		return "", c.reject(action, st, "transition not allowed")
	}
	return to, nil
}

func (c *Controller) reject(action string, st State, reason string) error {
	err := common.TransitionError(action, string(st.Stage), reason)
	c.log.Error(action, err.Error())
	return err
}

func (c *Controller) fail(action string, err error) error {
	c.log.Error(action, err.Error())
	return err
}

// extracted counts cells filled from the extraction itself.
func extracted(c rowbuilder.Candidate) int {
	n := 0
	for _, m := range c.Matches {
		if m.Kind == mapping.MatchExact || m.Kind == mapping.MatchRule {
			n++
		}
	}
	return n
}

// summarize lists up to max names for log details.
func summarize(names []string, max int) string {
	if len(names) <= max {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, +%d more", strings.Join(names[:max], ", "), len(names)-max)
}
