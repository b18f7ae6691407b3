package telemetry

import (
	"sync"

	"github.com/ayusman/conesteer/internal/store"
)

// DefaultBatchSize is the number of samples buffered before a database write.
const DefaultBatchSize = 30

// SampleAppender persists samples. *store.SampleRepository implements it.
type SampleAppender interface {
	Append(samples ...*store.Sample) error
}

// StoreSink buffers samples and writes them to the run database in batches.
type StoreSink struct {
	mu      sync.Mutex
	repo    SampleAppender
	size    int
	pending []*store.Sample
}

// NewStoreSink creates a StoreSink flushing every size samples.
func NewStoreSink(repo SampleAppender, size int) *StoreSink {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &StoreSink{repo: repo, size: size}
}

// Write buffers s and flushes when the batch is full.
func (b *StoreSink) Write(s Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, toRecord(s))
	if len(b.pending) < b.size {
		return nil
	}
	return b.flushLocked()
}

// Flush writes any buffered samples.
func (b *StoreSink) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

func (b *StoreSink) flushLocked() error {
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = nil
	return b.repo.Append(batch...)
}

// Close flushes the remaining samples.
func (b *StoreSink) Close() error {
	return b.Flush()
}

func toRecord(s Sample) *store.Sample {
	return &store.Sample{
		RunID:         s.RunID,
		Frame:         s.Frame,
		TimestampUS:   s.TimestampUS,
		Angle:         s.Angle,
		Case:          s.Case.String(),
		Branch:        string(s.Branch),
		Held:          s.Held,
		Direction:     s.Direction.String(),
		Dropout:       s.Dropout,
		BluePresent:   s.BluePresent,
		BlueX:         s.BlueX,
		YellowPresent: s.YellowPresent,
		YellowX:       s.YellowX,
	}
}
