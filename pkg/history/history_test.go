package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	b := New[float64](0)
	assert.Equal(t, DefaultCapacity, b.Cap())
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Values())

	_, ok := b.Last()
	assert.False(t, ok)
}

func TestPush_Order(t *testing.T) {
	b := New[float64](5)
	for i := 1; i <= 3; i++ {
		b.Push(float64(i))
	}
	assert.Equal(t, []float64{1, 2, 3}, b.Values())

	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, 3.0, last)
}

func TestPush_EvictsOldest(t *testing.T) {
	const capacity = 200
	b := New[float64](capacity)
	for i := 0; i <= capacity; i++ {
		b.Push(float64(i))
	}

	values := b.Values()
	assert.Len(t, values, capacity)
	assert.NotContains(t, values, 0.0)
	assert.Equal(t, 1.0, values[0])
	assert.Equal(t, float64(capacity), values[len(values)-1])
}

func TestPush_WrapsManyTimes(t *testing.T) {
	b := New[int](3)
	for i := range 10 {
		b.Push(i)
	}
	assert.Equal(t, []int{7, 8, 9}, b.Values())
	assert.Equal(t, 3, b.Len())
}

func TestAppendTo_ReusesDestination(t *testing.T) {
	b := New[float64](4)
	b.Push(1)
	b.Push(2)

	dst := make([]float64, 0, 8)
	dst = b.AppendTo(dst)
	assert.Equal(t, []float64{1, 2}, dst)
	assert.Equal(t, 8, cap(dst))
}

func TestRange(t *testing.T) {
	b := New[float64](10)

	_, err := b.Range()
	assert.ErrorIs(t, err, ErrInsufficientData)

	b.Push(5)
	_, err = b.Range()
	assert.ErrorIs(t, err, ErrInsufficientData, "single sample has no range")

	b.Push(-3)
	b.Push(12)
	r, err := b.Range()
	require.NoError(t, err)
	assert.Equal(t, -3.0, r.Min)
	assert.Equal(t, 12.0, r.Max)
	assert.Equal(t, 15.0, r.Span)
}

func TestRange_FlatSpanIsOne(t *testing.T) {
	b := New[float64](10)
	for range 4 {
		b.Push(42)
	}

	r, err := b.Range()
	require.NoError(t, err)
	assert.Equal(t, r.Min, r.Max)
	assert.Equal(t, 1.0, r.Span)
	assert.Equal(t, 0.0, r.Normalize(42))
}

func TestRange_AfterEviction(t *testing.T) {
	b := New[float64](3)
	for _, v := range []float64{-100, 1, 2, 3} {
		b.Push(v)
	}
	r, err := b.Range()
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Min, "evicted sample must not affect range")
	assert.Equal(t, 3.0, r.Max)
}

func TestRangeOf(t *testing.T) {
	_, err := RangeOf([]float64{1})
	assert.ErrorIs(t, err, ErrInsufficientData)

	r, err := RangeOf([]float64{2, 8, 4})
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 2, Max: 8, Span: 6}, r)
	assert.Equal(t, 0.5, r.Normalize(5))
}

func TestBuffer_ConcurrentAccess(t *testing.T) {
	b := New[float64](50)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			b.Push(float64(i))
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			assert.LessOrEqual(t, len(b.Values()), 50)
		}
	}()
	wg.Wait()

	assert.Equal(t, 50, b.Len())
	last, _ := b.Last()
	assert.Equal(t, 999.0, last)
}
