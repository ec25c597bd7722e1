package workflow

import (
	"maps"
	"slices"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/rowbuilder"
)

// Trigger is an event that may move a session to another stage.
type Trigger string

const (
	TriggerLoadSchema          Trigger = "load_schema"
	TriggerLoadDocuments       Trigger = "load_documents"
	TriggerBeginExtraction     Trigger = "begin_extraction"
	TriggerExtractionSucceeded Trigger = "extraction_succeeded"
	TriggerExtractionFailed    Trigger = "extraction_failed"
	TriggerCommit              Trigger = "commit"
	TriggerReset               Trigger = "reset"
	TriggerClear               Trigger = "clear"
)

type edge struct {
	from    constants.Stage
	trigger Trigger
}

// transitions is the complete stage graph. Anything not listed is rejected.
var transitions = map[edge]constants.Stage{
	{constants.StageIdle, TriggerLoadSchema}:            constants.StageSchemaLoaded,
	{constants.StageSchemaLoaded, TriggerLoadSchema}:    constants.StageSchemaLoaded,
	{constants.StageDocumentsLoaded, TriggerLoadSchema}: constants.StageSchemaLoaded,
	{constants.StageMapped, TriggerLoadSchema}:          constants.StageSchemaLoaded,
	{constants.StageCommitted, TriggerLoadSchema}:       constants.StageSchemaLoaded,

	{constants.StageSchemaLoaded, TriggerLoadDocuments}:    constants.StageDocumentsLoaded,
	{constants.StageDocumentsLoaded, TriggerLoadDocuments}: constants.StageDocumentsLoaded,

	{constants.StageDocumentsLoaded, TriggerBeginExtraction}: constants.StageExtracting,
	{constants.StageExtracting, TriggerExtractionSucceeded}:  constants.StageMapped,
	{constants.StageExtracting, TriggerExtractionFailed}:     constants.StageDocumentsLoaded,

	{constants.StageMapped, TriggerCommit}: constants.StageCommitted,

	{constants.StageSchemaLoaded, TriggerReset}:    constants.StageSchemaLoaded,
	{constants.StageDocumentsLoaded, TriggerReset}: constants.StageSchemaLoaded,
	{constants.StageMapped, TriggerReset}:          constants.StageSchemaLoaded,
	{constants.StageCommitted, TriggerReset}:       constants.StageSchemaLoaded,

	{constants.StageIdle, TriggerClear}:            constants.StageIdle,
	{constants.StageSchemaLoaded, TriggerClear}:    constants.StageIdle,
	{constants.StageDocumentsLoaded, TriggerClear}: constants.StageIdle,
	{constants.StageMapped, TriggerClear}:          constants.StageIdle,
	{constants.StageCommitted, TriggerClear}:       constants.StageIdle,
}

// Next returns the stage trigger leads to from stage, or false when the transition is
// not allowed.
func Next(stage constants.Stage, trigger Trigger) (constants.Stage, bool) {
	to, ok := transitions[edge{stage, trigger}]
	return to, ok
}

// State is one session's workflow position plus the entities attached to it. Controller
// methods take a State and return a new one; the input is never modified.
type State struct {
	Stage       constants.Stage
	Source      entity.SchemaSource
	Schema      entity.Schema
	Documents   []entity.Document
	Extractions map[string]entity.ExtractionResult
	Candidates  []rowbuilder.Candidate
	Dataset     entity.Dataset
}

// NewState is the Idle state.
func NewState() State {
	return State{Stage: constants.StageIdle}
}

// HasSchema reports whether a schema is loaded.
func (s State) HasSchema() bool { return !s.Schema.IsEmpty() }

// Clone copies every slice and map so the result shares nothing mutable with s.
// Document contents and extraction results are immutable and stay shared.
func (s State) Clone() State {
	out := s
	out.Source.Columns = slices.Clone(s.Source.Columns)
	if s.Source.Rows != nil {
		out.Source.Rows = make([][]string, len(s.Source.Rows))
		for i, r := range s.Source.Rows {
			out.Source.Rows[i] = slices.Clone(r)
		}
	}
	out.Documents = slices.Clone(s.Documents)
	out.Extractions = maps.Clone(s.Extractions)
	if s.Candidates != nil {
		out.Candidates = make([]rowbuilder.Candidate, len(s.Candidates))
		for i, c := range s.Candidates {
			c.Row = c.Row.Clone()
			c.Gaps = slices.Clone(c.Gaps)
			c.Matches = slices.Clone(c.Matches)
			out.Candidates[i] = c
		}
	}
	return out
}

// Rows returns the candidate rows in submission order.
func (s State) Rows() []entity.Row {
	out := make([]entity.Row, len(s.Candidates))
	for i, c := range s.Candidates {
		out[i] = c.Row.Clone()
	}
	return out
}
