package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileJournalRecordAndList(t *testing.T) {
	j := NewFileJournal(filepath.Join(t.TempDir(), "nested", "uploads.json"))
	ctx := context.Background()

	items, err := j.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, j.Record(ctx, Entry{ID: "1", DataType: "queries", Rows: 3}))
	require.NoError(t, j.Record(ctx, Entry{ID: "2", DataType: "table_stats", Rows: 1}))
	require.NoError(t, j.Record(ctx, Entry{ID: "3", DataType: "cols_stats", Rows: 9}))

	items, err = j.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "3", items[0].ID)
	assert.Equal(t, "2", items[1].ID)
	assert.NotZero(t, items[0].SubmittedAt)

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Length)
}

func TestFileJournalHonorsCancelledContext(t *testing.T) {
	j := NewFileJournal(filepath.Join(t.TempDir(), "uploads.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, j.Record(ctx, Entry{ID: "x"}), context.Canceled)
}

func TestRedisJournalRecordAndList(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	j := NewRedisJournal("redis://"+mr.Addr(), "test:uploads")
	defer j.Close()
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, Entry{ID: "a", DataType: "queries", WorkloadID: "w1"}))
	require.NoError(t, j.Record(ctx, Entry{ID: "b", DataType: "table_stats"}))

	items, err := j.List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "w1", items[1].WorkloadID)

	items, err = j.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Length)
}

func TestUnconfiguredBackendsError(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, NewRedisJournal("", "").Record(ctx, Entry{}))
	_, err := NewRedisJournal("", "").List(ctx, 10)
	assert.Error(t, err)

	for _, brokers := range []string{"", " , "} {
		k := NewKafkaJournal(brokers, "")
		assert.Error(t, k.Record(ctx, Entry{}))
		_, err = k.List(ctx, 10)
		assert.Error(t, err)
		_, err = k.Stats(ctx)
		assert.Error(t, err)
		assert.NoError(t, k.Close())
	}
}

func TestKafkaJournalBrokers(t *testing.T) {
	k := NewKafkaJournal(" kafka-1:9092, kafka-2:9092 ,", "")
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, k.brokers)
	assert.Equal(t, "optimizer.uploads", k.topic)
	require.NotNil(t, k.writer)
	assert.Equal(t, "optimizer.uploads", k.writer.Topic)
	assert.NoError(t, k.Close())
}

func TestKafkaJournalUnreachableBrokers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	k := NewKafkaJournal("127.0.0.1:1,127.0.0.1:2", "uploads")
	_, err := k.Stats(ctx)
	assert.Error(t, err)
	_, err = k.List(ctx, 5)
	assert.Error(t, err)
}

func TestNewestFirst(t *testing.T) {
	in := []Entry{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	assert.Equal(t, []Entry{{ID: "3"}, {ID: "2"}, {ID: "1"}}, newestFirst(in, 0))
	assert.Equal(t, []Entry{{ID: "3"}}, newestFirst(in, 1))
}
