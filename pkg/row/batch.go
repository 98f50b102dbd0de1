package row

import "sync"

// Row is one cell per schema column, in schema order.
type Row []Cell

// Batch is a group of rows written against the same schema version.
type Batch struct {
	Rows          []Row
	SchemaVersion int32
}

// Len returns the number of rows in b.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// BatchList buffers row batches between flushes. Appends are safe for
// concurrent use; iteration always follows insertion order.
type BatchList struct {
	mu      sync.Mutex
	batches []*Batch
	rows    int
}

// NewBatchList creates an empty list.
func NewBatchList() *BatchList {
	return &BatchList{}
}

// Append adds b to the end of the list. Appended batches must not be
// modified afterwards.
func (l *BatchList) Append(b *Batch) {
	if b == nil {
		return
	}
	l.mu.Lock()
	l.batches = append(l.batches, b)
	l.rows += len(b.Rows)
	l.mu.Unlock()
}

// Len returns the number of buffered batches.
func (l *BatchList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.batches)
}

// Rows returns the number of buffered rows.
func (l *BatchList) Rows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}

// Snapshot returns the buffered batches without removing them.
func (l *BatchList) Snapshot() []*Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Batch, len(l.batches))
	copy(out, l.batches)
	return out
}

// Drain removes and returns every buffered batch. Batches appended after
// Drain returns belong to the next flush cycle.
func (l *BatchList) Drain() []*Batch {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.batches
	l.batches = nil
	l.rows = 0
	return out
}

// Requeue puts batches back at the head of the list, ahead of anything
// appended since they were drained. Used when a flush fails.
func (l *BatchList) Requeue(batches []*Batch) {
	if len(batches) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, b := range batches {
		n += len(b.Rows)
	}
	l.batches = append(append(make([]*Batch, 0, len(batches)+len(l.batches)), batches...), l.batches...)
	l.rows += n
}
