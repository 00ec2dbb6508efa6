package cementing

import (
	"github.com/ArTombado/rsnano-node/model/nano"
)

// hashRing is a fixed-capacity ring buffer of block hashes. Pushing onto a
// full ring evicts the oldest entry, which is what bounds the memory of the
// dependency walk: an evicted checkpoint only costs re-traversal, never
// correctness.
type hashRing struct {
	buf  []nano.BlockHash
	head int
	size int
}

func newHashRing(capacity int) *hashRing {
	return &hashRing{buf: make([]nano.BlockHash, capacity)}
}

func (r *hashRing) Len() int {
	return r.size
}

func (r *hashRing) Empty() bool {
	return r.size == 0
}

func (r *hashRing) PushBack(hash nano.BlockHash) {
	if r.size == len(r.buf) {
		// overwrite the oldest entry
		r.buf[r.head] = hash
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[(r.head+r.size)%len(r.buf)] = hash
	r.size++
}

func (r *hashRing) Back() nano.BlockHash {
	return r.buf[(r.head+r.size-1)%len(r.buf)]
}

// TruncateAfter drops every entry behind the first occurrence of the given
// hash, keeping the hash itself. A hash that is not present leaves the ring
// untouched.
func (r *hashRing) TruncateAfter(hash nano.BlockHash) {
	for i := 0; i < r.size; i++ {
		if r.buf[(r.head+i)%len(r.buf)] == hash {
			r.size = i + 1
			return
		}
	}
}

// pairRing is a fixed-capacity ring buffer of receive-source pairs, used as
// a stack: pairs are pushed and popped at the back, while overflow evicts at
// the front (the pair closest to the originally requested block, which a
// checkpoint lets us rediscover).
type pairRing struct {
	buf  []receiveSourcePair
	head int
	size int
}

func newPairRing(capacity int) *pairRing {
	return &pairRing{buf: make([]receiveSourcePair, capacity)}
}

func (r *pairRing) Len() int {
	return r.size
}

func (r *pairRing) Empty() bool {
	return r.size == 0
}

func (r *pairRing) PushBack(pair receiveSourcePair) {
	if r.size == len(r.buf) {
		r.buf[r.head] = pair
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[(r.head+r.size)%len(r.buf)] = pair
	r.size++
}

func (r *pairRing) Back() receiveSourcePair {
	return r.buf[(r.head+r.size-1)%len(r.buf)]
}

func (r *pairRing) PopBack() {
	if r.size > 0 {
		r.size--
	}
}
