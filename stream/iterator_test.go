package stream_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/natcodec/stream"
)

type countingCloser struct{ n int }

func (c *countingCloser) Close() error { c.n++; return nil }

func counter(limit int, calls *int) func(int) (int, error) {
	return func(prev int) (int, error) {
		*calls++
		if prev >= limit {
			return 0, stream.ErrStop
		}
		return prev + 1, nil
	}
}

func TestIterator_LookaheadIdempotence(t *testing.T) {
	calls := 0
	cl := &countingCloser{}
	it := stream.NewIterator(nil, counter(2, &calls), cl)

	assert.True(t, it.HasNext())
	assert.True(t, it.HasNext())
	assert.True(t, it.HasNext())
	assert.Equal(t, 1, calls, "repeated HasNext must not re-produce")

	v, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)

	assert.False(t, it.HasNext())
	assert.False(t, it.HasNext())
	_, ok = it.Next()
	assert.False(t, ok)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, cl.n, "resource closed exactly once")
	assert.NoError(t, it.Err())
	assert.NoError(t, it.Close())
	assert.Equal(t, 1, cl.n)
}

func TestIterator_NoMoreStopsBeforeProducing(t *testing.T) {
	calls := 0
	cl := &countingCloser{}
	it := stream.NewIterator(func() bool { return true }, counter(5, &calls), cl)
	assert.False(t, it.HasNext())
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, cl.n)
}

func TestIterator_ProducerErrorIsFatal(t *testing.T) {
	boom := errors.New("disk on fire")
	cl := &countingCloser{}
	n := 0
	it := stream.NewIterator(nil, func(int) (int, error) {
		n++
		if n == 2 {
			return 0, boom
		}
		return n, nil
	}, cl)
	var got []int
	for v := range it.All() {
		got = append(got, v)
	}
	assert.Equal(t, []int{1}, got)
	assert.ErrorIs(t, it.Err(), boom)
	assert.Equal(t, 1, cl.n)
	assert.False(t, it.HasNext())
}

func TestIterator_PrefixConsumptionLeavesResourceOpen(t *testing.T) {
	calls := 0
	cl := &countingCloser{}
	it := stream.NewIterator(nil, counter(10, &calls), cl)
	for v := range it.All() {
		if v == 3 {
			break
		}
	}
	assert.Equal(t, 0, cl.n)
	assert.Equal(t, 3, calls)
	require.NoError(t, it.Close())
	assert.Equal(t, 1, cl.n)
	assert.False(t, it.HasNext())
}
