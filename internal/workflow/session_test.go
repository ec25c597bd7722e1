package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/extraction"
	"github.com/joseph-ayodele/docrows/internal/workflow"
)

func TestSession_CancelStopsExtraction(t *testing.T) {
	started := make(chan string, 1)
	svc := extraction.ServiceFunc(func(ctx context.Context, req extraction.Request) (extraction.Response, error) {
		started <- common.SessionIDFromContext(ctx)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s := workflow.NewSession(newController(svc))
	require.NoError(t, s.LoadSchema(source(), nil))
	require.NoError(t, s.LoadDocuments([]entity.Document{doc("d1", "a.pdf")}))

	done := make(chan error, 1)
	go func() { done <- s.Extract(context.Background()) }()

	sessionID := <-started
	assert.Equal(t, s.ID(), sessionID)
	assert.Equal(t, constants.StageExtracting, s.Stage())
	assert.Equal(t, constants.StageExtracting, s.Snapshot().Stage)

	s.Cancel()
	select {
	case err := <-done:
		var ee *common.ExtractionError
		require.ErrorAs(t, err, &ee)
		assert.True(t, ee.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("extraction did not stop after Cancel")
	}

	snap := s.Snapshot()
	assert.Equal(t, constants.StageDocumentsLoaded, snap.Stage)
	assert.Len(t, snap.Documents, 1)

	s.Cancel()
}

func TestSession_FullFlow(t *testing.T) {
	s := workflow.NewSession(newController(staticService(extraction.Response{"d1": {"Name": "Acme"}})))
	require.NoError(t, s.LoadSchema(source(), []string{"Name"}))
	require.NoError(t, s.LoadDocuments([]entity.Document{doc("d1", "a.pdf")}))
	require.NoError(t, s.Extract(context.Background()))
	require.NoError(t, s.Commit())

	snap := s.Snapshot()
	assert.Equal(t, constants.StageCommitted, snap.Stage)
	assert.Equal(t, []entity.Row{{"Old CLA"}, {"Acme"}}, snap.Dataset.Rows())

	art, err := s.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cao_overview_processed.xlsx", art.Filename)

	assert.ErrorIs(t, s.Commit(), common.ErrInvalidTransition)
	assert.Equal(t, constants.StageCommitted, s.Stage())

	require.NoError(t, s.Reset(true))
	assert.Equal(t, constants.StageIdle, s.Stage())
	assert.Positive(t, s.Log().Len())
}

func TestSession_SnapshotIsIsolated(t *testing.T) {
	s := workflow.NewSession(newController(staticService(nil)))
	require.NoError(t, s.LoadSchema(source(), nil))
	require.NoError(t, s.LoadDocuments([]entity.Document{doc("d1", "a.pdf")}))

	snap := s.Snapshot()
	snap.Documents[0].Name = "mutated.pdf"
	snap.Source.Columns[0] = "mutated"

	again := s.Snapshot()
	assert.Equal(t, "a.pdf", again.Documents[0].Name)
	assert.Equal(t, "PDF_Filename", again.Source.Columns[0])
}

func TestSession_ConcurrentOperationsAreSerialized(t *testing.T) {
	s := workflow.NewSession(newController(staticService(nil)))
	require.NoError(t, s.LoadSchema(source(), nil))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = s.LoadDocuments([]entity.Document{doc(id, id+".pdf")})
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Documents, 20)
	assert.Equal(t, constants.StageDocumentsLoaded, snap.Stage)
}
