package transcript

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concord/internal/consensus"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordRunAndListByRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := consensus.RunRecord{
		ID: "run-1",
		Transcript: []consensus.TranscriptEntry{
			{Round: 1, ModelID: "gpt", RawText: "challenged answer", Price: 105},
			{Round: 0, ModelID: "gpt", RawText: "initial answer", Price: 100},
			{Round: 0, ModelID: "deepseek", RawText: "", Err: "timeout"},
		},
	}
	require.NoError(t, s.RecordRun(ctx, run))

	entries, err := s.ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// 按轮次、模型 ID 排序
	assert.Equal(t, "deepseek", entries[0].ModelID)
	assert.Equal(t, 0, entries[0].Round)
	assert.Equal(t, "timeout", entries[0].Error)
	assert.Equal(t, "gpt", entries[1].ModelID)
	assert.Equal(t, "initial answer", entries[1].RawOutput)
	assert.Equal(t, 1, entries[2].Round)
	assert.InDelta(t, 105, entries[2].Price, 1e-9)
}

func TestListByRunEmpty(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.ListByRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordRunAfterClose(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())
	err := s.RecordRun(context.Background(), consensus.RunRecord{ID: "x"})
	assert.Error(t, err)
}
