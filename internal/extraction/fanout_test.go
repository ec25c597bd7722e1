package extraction_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/extraction"
	"github.com/joseph-ayodele/docrows/internal/logging"
)

func TestFanOut_KeepsEveryDocumentAndRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	ext := extraction.DocumentExtractorFunc(func(ctx context.Context, doc entity.Document, columns []string) (map[string]string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		// later documents finish first
		if doc.ID == "a" {
			time.Sleep(20 * time.Millisecond)
		}
		return map[string]string{"Name": doc.Name, "columns": columns[0]}, nil
	})

	documents := []entity.Document{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}, {ID: "d", Name: "D"}}
	resp, err := extraction.NewFanOut(ext, 2, logging.NewNop()).
		Extract(context.Background(), extraction.Request{Documents: documents, Columns: []string{"Name"}})
	require.NoError(t, err)

	require.Len(t, resp, 4)
	for _, d := range documents {
		assert.Equal(t, map[string]string{"Name": d.Name, "columns": "Name"}, resp[d.ID])
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFanOut_FirstErrorCancelsOthers(t *testing.T) {
	boom := errors.New("backend down")
	var canceled atomic.Bool
	ext := extraction.DocumentExtractorFunc(func(ctx context.Context, doc entity.Document, _ []string) (map[string]string, error) {
		if doc.ID == "bad" {
			return nil, boom
		}
		select {
		case <-ctx.Done():
			canceled.Store(true)
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return map[string]string{}, nil
		}
	})

	_, err := extraction.NewFanOut(ext, 4, logging.NewNop()).Extract(context.Background(), extraction.Request{
		Documents: []entity.Document{{ID: "slow", Name: "slow.pdf"}, {ID: "bad", Name: "bad.pdf"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "bad.pdf")
	assert.True(t, canceled.Load())
}

func TestFanOut_NilFieldsBecomeEmpty(t *testing.T) {
	ext := extraction.DocumentExtractorFunc(func(context.Context, entity.Document, []string) (map[string]string, error) {
		return nil, nil
	})
	resp, err := extraction.NewFanOut(ext, 0, nil).Extract(context.Background(), extraction.Request{
		Documents: []entity.Document{{ID: "a"}},
	})
	require.NoError(t, err)
	assert.Equal(t, extraction.Response{"a": {}}, resp)
}

func TestResponse_Results(t *testing.T) {
	results := extraction.Response{"a": {"Name": "Acme"}}.Results()
	v, ok := results["a"].Get("Name")
	assert.True(t, ok)
	assert.Equal(t, "Acme", v)
	assert.Equal(t, "a", results["a"].DocumentID())
}
