package history

import (
	"errors"
	"sync"
)

// DefaultCapacity is the number of samples kept for live plotting.
const DefaultCapacity = 200

// ErrInsufficientData is returned by Range when fewer than two samples are held.
var ErrInsufficientData = errors.New("insufficient data")

// Number is the set of sample types a Buffer can hold.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Range is the plotting range of a sample sequence.
// Span is Max-Min, or 1 when all samples are equal.
type Range struct {
	Min  float64
	Max  float64
	Span float64
}

// Normalize maps v into [0, 1] relative to the range.
func (r Range) Normalize(v float64) float64 {
	return (v - r.Min) / r.Span
}

// Buffer is a fixed-capacity FIFO ring buffer.
// When full, Push evicts the oldest sample. It is safe for concurrent use.
type Buffer[T Number] struct {
	mu   sync.RWMutex
	data []T
	head int // index of the oldest sample
	size int
}

// New creates a Buffer holding at most capacity samples.
func New[T Number](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{
		data: make([]T, capacity),
	}
}

// Push appends v, evicting the oldest sample if the buffer is full.
func (b *Buffer[T]) Push(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.data) {
		b.data[b.head] = v
		b.head = (b.head + 1) % len(b.data)
		return
	}
	b.data[(b.head+b.size)%len(b.data)] = v
	b.size++
}

// Len returns the number of samples held.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

// Values returns a copy of the samples, oldest first.
func (b *Buffer[T]) Values() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.appendTo(make([]T, 0, b.size))
}

// AppendTo appends the samples, oldest first, to dst and returns the result.
func (b *Buffer[T]) AppendTo(dst []T) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.appendTo(dst)
}

func (b *Buffer[T]) appendTo(dst []T) []T {
	first := b.data[b.head:min(b.head+b.size, len(b.data))]
	dst = append(dst, first...)
	if rest := b.size - len(first); rest > 0 {
		dst = append(dst, b.data[:rest]...)
	}
	return dst
}

// Last returns the newest sample.
func (b *Buffer[T]) Last() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.data[(b.head+b.size-1)%len(b.data)], true
}

// Range returns the min/max of the current contents.
func (b *Buffer[T]) Range() (Range, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size < 2 {
		return Range{}, ErrInsufficientData
	}

	r := Range{Min: float64(b.data[b.head]), Max: float64(b.data[b.head])}
	for i := 1; i < b.size; i++ {
		v := float64(b.data[(b.head+i)%len(b.data)])
		r.Min = min(r.Min, v)
		r.Max = max(r.Max, v)
	}
	r.Span = span(r.Min, r.Max)
	return r, nil
}

// RangeOf computes the plotting range of an arbitrary sample slice.
func RangeOf[T Number](values []T) (Range, error) {
	if len(values) < 2 {
		return Range{}, ErrInsufficientData
	}
	r := Range{Min: float64(values[0]), Max: float64(values[0])}
	for _, v := range values[1:] {
		r.Min = min(r.Min, float64(v))
		r.Max = max(r.Max, float64(v))
	}
	r.Span = span(r.Min, r.Max)
	return r, nil
}

func span(lo, hi float64) float64 {
	if hi == lo {
		return 1
	}
	return hi - lo
}
