package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gcbaptista/go-vsr-engine/config"
	internalErrors "github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
	"github.com/gcbaptista/go-vsr-engine/model"
	"github.com/gcbaptista/go-vsr-engine/services"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 2 * time.Second
	defaultRetryBackoff  = time.Second
)

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewReader creates a consumer-group reader for the ingest topic.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
}

// Options controls batching. Zero values take the defaults.
type Options struct {
	BatchSize     int           // messages staged together
	FlushInterval time.Duration // idle time after which a partial batch is staged
	Build         bool          // start a build job for every index a batch staged into
	RetryBackoff  time.Duration // pause after a failed fetch
}

// OptionsFromConfig maps the service configuration to consumer options.
func OptionsFromConfig(cfg config.KafkaConfig) Options {
	return Options{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Build:         cfg.Build,
	}
}

// Stats counts messages by outcome.
type Stats struct {
	Received int64 `json:"received"`
	Staged   int64 `json:"staged"`
	Skipped  int64 `json:"skipped"` // already staged
	Failed   int64 `json:"failed"`  // undecodable, unknown index or rejected by the index
}

// Consumer reads documents from Kafka and stages them in batches. Messages are
// committed once their batch has been handled, whether or not staging succeeded,
// so a malformed message is never redelivered.
type Consumer struct {
	reader  Reader
	indexes services.AsyncIndexManager
	opts    Options
	logger  *slog.Logger
	pending []kafka.Message

	received atomic.Int64
	staged   atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// NewConsumer creates a consumer staging into the indexes of indexes.
func NewConsumer(reader Reader, indexes services.AsyncIndexManager, opts Options) *Consumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Consumer{
		reader:  reader,
		indexes: indexes,
		opts:    opts,
		logger:  logger.WithComponent("ingest"),
		pending: make([]kafka.Message, 0, opts.BatchSize),
	}
}

// Start enters the consume loop until ctx is cancelled or the reader is closed.
// The pending batch is staged before returning.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", "batch_size", c.opts.BatchSize, "flush_interval", c.opts.FlushInterval)
	for {
		fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FlushInterval)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			switch {
			case ctx.Err() != nil:
				c.flush(context.WithoutCancel(ctx))
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			case errors.Is(err, context.DeadlineExceeded):
				c.flush(ctx)
			case errors.Is(err, io.EOF):
				c.flush(ctx)
				return nil
			default:
				c.logger.Error("failed to fetch message", "error", err, "retry_in", c.opts.RetryBackoff)
				c.wait(ctx, c.opts.RetryBackoff)
			}
			continue
		}

		c.received.Add(1)
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"value_size", len(msg.Value),
		)
		c.pending = append(c.pending, msg)
		if len(c.pending) >= c.opts.BatchSize {
			c.flush(ctx)
		}
	}
}

// wait sleeps for d or until ctx is done.
func (c *Consumer) wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Stats returns the message counters.
func (c *Consumer) Stats() Stats {
	return Stats{
		Received: c.received.Load(),
		Staged:   c.staged.Load(),
		Skipped:  c.skipped.Load(),
		Failed:   c.failed.Load(),
	}
}

// flush groups the pending messages by index, stages each group and commits
func (c *Consumer) flush(ctx context.Context) {
	if len(c.pending) == 0 {
		return
	}

	batches := make(map[string][]model.RawDocument)
	seen := make(map[string]map[string]bool)
	var order []string

	for _, msg := range c.pending {
		m, err := Decode(msg.Value)
		if err != nil {
			c.failed.Add(1)
			c.logger.Warn("dropping message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		doc, err := m.Document()
		if err != nil {
			c.failed.Add(1)
			c.logger.Warn("dropping message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}

		if seen[m.Index] == nil {
			seen[m.Index] = make(map[string]bool)
			order = append(order, m.Index)
		}
		if seen[m.Index][doc.ID] {
			c.skipped.Add(1)
			continue
		}
		seen[m.Index][doc.ID] = true
		batches[m.Index] = append(batches[m.Index], doc)
	}

	for _, name := range order {
		c.stage(name, batches[name])
	}

	if err := c.reader.CommitMessages(ctx, c.pending...); err != nil {
		c.logger.Error("failed to commit messages", "count", len(c.pending), "error", err)
	}
	c.pending = c.pending[:0]
}

func (c *Consumer) stage(name string, docs []model.RawDocument) {
	accessor, err := c.indexes.GetIndex(name)
	if err != nil {
		c.failed.Add(int64(len(docs)))
		c.logger.Warn("dropping documents for unknown index", "index", name, "count", len(docs))
		return
	}

	fresh := make([]model.RawDocument, 0, len(docs))
	for _, doc := range docs {
		if _, err := accessor.DocumentDetails(doc.ID); err == nil {
			c.skipped.Add(1)
			continue
		}
		fresh = append(fresh, doc)
	}
	if len(fresh) == 0 {
		return
	}

	staged := c.add(accessor, fresh)
	c.logger.Debug("batch staged", "index", name, "staged", staged, "batch", len(fresh))

	if staged > 0 && c.opts.Build && !accessor.Settings().AutoBuild {
		if _, err := c.indexes.BuildIndexAsync(name); err != nil {
			c.logger.Error("failed to start build", "index", name, "error", err)
		}
	}
}

// add stages docs as one batch, or one by one when another writer staged one of
// them in the meantime. It returns the number staged.
func (c *Consumer) add(accessor services.IndexAccessor, docs []model.RawDocument) int {
	err := accessor.AddDocuments(docs)
	if err == nil {
		c.staged.Add(int64(len(docs)))
		return len(docs)
	}
	if !errors.Is(err, internalErrors.ErrDocumentExists) {
		c.failed.Add(int64(len(docs)))
		c.logger.Error("failed to stage batch", "count", len(docs), "error", err)
		return 0
	}

	staged := 0
	for _, doc := range docs {
		switch err := accessor.AddDocuments([]model.RawDocument{doc}); {
		case err == nil:
			staged++
			c.staged.Add(1)
		case errors.Is(err, internalErrors.ErrDocumentExists):
			c.skipped.Add(1)
		default:
			c.failed.Add(1)
			c.logger.Error("failed to stage document", "id", doc.ID, "error", err)
		}
	}
	return staged
}
