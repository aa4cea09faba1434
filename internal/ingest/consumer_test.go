package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/testutil"
	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/services"
)

// fakeReader serves a fixed list of messages, then blocks until the fetch context ends.
// With fail set every fetch returns that error instead.
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	next      int
	committed []kafka.Message
	eof       bool
	fail      error
	fetches   int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	r.fetches++
	if r.fail != nil {
		r.mu.Unlock()
		return kafka.Message{}, r.fail
	}
	if r.next < len(r.messages) {
		msg := r.messages[r.next]
		r.next++
		r.mu.Unlock()
		return msg, nil
	}
	eof := r.eof
	r.mu.Unlock()

	if eof {
		return kafka.Message{}, io.EOF
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) fetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func jsonMessage(t *testing.T, offset int64, v any) kafka.Message {
	t.Helper()
	value, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: value}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantID    string
		wantError error
	}{
		{name: "id", value: `{"index":"web","id":"p1","text":"hello"}`, wantID: "p1"},
		{name: "url stands in for id", value: `{"index":"web","url":"https://example.com/a","text":"hello"}`, wantID: "https://example.com/a"},
		{name: "missing index", value: `{"id":"p1"}`, wantError: internalErrors.ErrInvalidInput},
		{name: "missing id and url", value: `{"index":"web","text":"x"}`, wantError: internalErrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.value))
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, msg.DocumentID())
		})
	}

	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestMessage_Document(t *testing.T) {
	msg := Message{
		Index:       "web",
		ID:          "page",
		Text:        "<html><head><title>Cats</title><style>p{}</style></head><body><p>cats purr</p></body></html>",
		ContentType: "text/html",
	}
	doc, err := msg.Document()
	require.NoError(t, err)
	assert.Equal(t, "page", doc.ID)
	assert.Contains(t, doc.Text, "Cats")
	assert.Contains(t, doc.Text, "cats purr")
	assert.NotContains(t, doc.Text, "p{}")

	plain := Message{Index: "web", ID: "txt", Text: "<b>kept as is</b>"}
	doc, err = plain.Document()
	require.NoError(t, err)
	assert.Equal(t, "<b>kept as is</b>", doc.Text)
}

func TestConsumer_StagesBatches(t *testing.T) {
	eng, _ := testutil.CreateTestEngine(t)
	testutil.CreateTestIndex(t, eng, "web")

	accessor, err := eng.GetIndex("web")
	require.NoError(t, err)
	require.NoError(t, accessor.AddDocuments([]model.RawDocument{{ID: "old", Text: "already here"}}))

	reader := &fakeReader{messages: []kafka.Message{
		jsonMessage(t, 0, Message{Index: "web", ID: "a", Text: "red fox"}),
		jsonMessage(t, 1, Message{Index: "web", URL: "https://example.com/b", Text: "<p>red hen</p>", ContentType: "text/html"}),
		jsonMessage(t, 2, Message{Index: "web", ID: "a", Text: "repeated in batch"}),
		jsonMessage(t, 3, Message{Index: "web", ID: "old", Text: "already staged"}),
		jsonMessage(t, 4, Message{Index: "missing", ID: "x", Text: "no such index"}),
		{Offset: 5, Value: []byte("garbage")},
	}}

	consumer := NewConsumer(reader, eng, Options{BatchSize: 4, FlushInterval: 20 * time.Millisecond, Build: true})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool {
		return reader.committedCount() == len(reader.messages)
	}, 5*time.Second, 10*time.Millisecond, "Every message should be committed")

	cancel()
	require.NoError(t, <-done)

	stats := consumer.Stats()
	assert.Equal(t, Stats{Received: 6, Staged: 2, Skipped: 2, Failed: 2}, stats)

	require.Eventually(t, func() bool {
		status := model.JobStatusCompleted
		return len(eng.ListJobs("web", &status)) > 0 && accessor.Stats().IndexedDocuments == 3
	}, 5*time.Second, 10*time.Millisecond, "A build job should index the staged documents")

	result, err := accessor.Boolean(services.BooleanQuery{Terms: []string{"red"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "https://example.com/b"}, result.Documents)
}

func TestConsumer_StopsAtEndOfStream(t *testing.T) {
	eng, _ := testutil.CreateTestEngine(t)
	testutil.CreateTestIndex(t, eng, "web")

	reader := &fakeReader{
		messages: []kafka.Message{jsonMessage(t, 0, Message{Index: "web", ID: "a", Text: "last words"})},
		eof:      true,
	}
	consumer := NewConsumer(reader, eng, Options{BatchSize: 10})

	err := consumer.Start(t.Context())
	require.False(t, errors.Is(err, io.EOF))
	require.NoError(t, err)

	assert.Equal(t, 1, reader.committedCount(), "The partial batch is staged before returning")
	assert.EqualValues(t, 1, consumer.Stats().Staged)
}

func TestConsumer_BacksOffAfterFetchErrors(t *testing.T) {
	eng, _ := testutil.CreateTestEngine(t)

	reader := &fakeReader{fail: errors.New("broker unreachable")}
	consumer := NewConsumer(reader, eng, Options{RetryBackoff: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Consumer should stop during a backoff")
	}
	assert.LessOrEqual(t, reader.fetchCount(), 10, "Failed fetches should not be retried in a tight loop")
	assert.Positive(t, reader.fetchCount())
}

func TestConsumer_StopsDuringBackoff(t *testing.T) {
	eng, _ := testutil.CreateTestEngine(t)

	reader := &fakeReader{fail: errors.New("broker unreachable")}
	consumer := NewConsumer(reader, eng, Options{RetryBackoff: time.Hour})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool {
		return reader.fetchCount() == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Cancellation should end the backoff")
	}
}
