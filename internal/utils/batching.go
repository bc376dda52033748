package utils

import (
	"log/slog"
	"sync"
)

// BatchBuffer collects items until a batch is full or a caller drains it.
type BatchBuffer[T any] struct {
	buffer     []T
	capacity   int
	bufferLock sync.Mutex
}

func NewBatchBuffer[T any](capacity int) *BatchBuffer[T] {
	capacity = max(capacity, 1)
	return &BatchBuffer[T]{
		buffer:   make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Add appends items and reports whether the buffer reached its capacity.
func (b *BatchBuffer[T]) Add(items ...T) bool {
	b.bufferLock.Lock()
	defer b.bufferLock.Unlock()

	b.buffer = append(b.buffer, items...)
	return len(b.buffer) >= b.capacity
}

func (b *BatchBuffer[T]) GetAndClear() []T {
	b.bufferLock.Lock()
	defer b.bufferLock.Unlock()

	if len(b.buffer) == 0 {
		return nil
	}

	batch := b.buffer
	b.buffer = make([]T, 0, b.capacity)
	return batch
}

func (b *BatchBuffer[T]) Size() int {
	b.bufferLock.Lock()
	defer b.bufferLock.Unlock()
	return len(b.buffer)
}

func (b *BatchBuffer[T]) HasData() bool {
	return b.Size() > 0
}

func (b *BatchBuffer[T]) LogBatchProcessing(batchType string) {
	slog.Info("[BatchBuffer] Processing batch",
		slog.String("type", batchType),
		slog.Int("batch_size", b.Size()))
}
