package cementing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArTombado/rsnano-node/model/nano"
)

func hashOf(b byte) nano.BlockHash {
	var hash nano.BlockHash
	hash[0] = b
	return hash
}

func TestHashRingEvictsOldest(t *testing.T) {
	ring := newHashRing(3)
	assert.True(t, ring.Empty())

	for b := byte(1); b <= 5; b++ {
		ring.PushBack(hashOf(b))
	}
	// capacity 3, so 1 and 2 were evicted
	assert.Equal(t, 3, ring.Len())
	assert.Equal(t, hashOf(5), ring.Back())

	// the remaining entries are 3, 4, 5
	ring.TruncateAfter(hashOf(3))
	assert.Equal(t, 1, ring.Len())
	assert.Equal(t, hashOf(3), ring.Back())
}

func TestHashRingTruncateAfter(t *testing.T) {
	ring := newHashRing(8)
	for b := byte(1); b <= 5; b++ {
		ring.PushBack(hashOf(b))
	}

	ring.TruncateAfter(hashOf(3))
	assert.Equal(t, 3, ring.Len())
	assert.Equal(t, hashOf(3), ring.Back())

	// a hash that is not present leaves the ring untouched
	ring.TruncateAfter(hashOf(9))
	assert.Equal(t, 3, ring.Len())
}

func TestPairRingStack(t *testing.T) {
	ring := newPairRing(2)
	require.True(t, ring.Empty())

	push := func(b byte) {
		ring.PushBack(receiveSourcePair{sourceHash: hashOf(b)})
	}

	push(1)
	push(2)
	assert.Equal(t, hashOf(2), ring.Back().sourceHash)

	// overflow evicts at the front, the back stays intact
	push(3)
	assert.Equal(t, 2, ring.Len())
	assert.Equal(t, hashOf(3), ring.Back().sourceHash)

	ring.PopBack()
	assert.Equal(t, hashOf(2), ring.Back().sourceHash)
	ring.PopBack()
	assert.True(t, ring.Empty())

	// popping an empty ring is a no-op
	ring.PopBack()
	assert.True(t, ring.Empty())
}
