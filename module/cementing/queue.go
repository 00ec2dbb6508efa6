package cementing

import (
	"github.com/ef-ds/deque"

	"github.com/ArTombado/rsnano-node/model/nano"
)

// writeDetails is one contiguous cementable range for one account, awaiting
// a flush. The range must abut the account's confirmed frontier exactly when
// it is applied: BottomHeight == confirmed height + 1.
type writeDetails struct {
	Account      nano.Account
	BottomHeight uint64
	BottomHash   nano.BlockHash
	TopHeight    uint64
	TopHash      nano.BlockHash
}

// pendingWriteQueue is the ordered queue of write ranges awaiting a single
// commit. Ranges for one account are queued bottom-to-top, so applying them
// in FIFO order preserves the gapless-frontier invariant.
type pendingWriteQueue struct {
	queue       deque.Deque
	totalBlocks uint64
}

func newPendingWriteQueue() *pendingWriteQueue {
	return &pendingWriteQueue{}
}

func (q *pendingWriteQueue) Len() int {
	return q.queue.Len()
}

func (q *pendingWriteQueue) Empty() bool {
	return q.queue.Len() == 0
}

// TotalBlocks returns the total number of blocks across all queued ranges.
func (q *pendingWriteQueue) TotalBlocks() uint64 {
	return q.totalBlocks
}

func (q *pendingWriteQueue) PushBack(details writeDetails) {
	q.queue.PushBack(details)
	q.totalBlocks += details.TopHeight - details.BottomHeight + 1
}

func (q *pendingWriteQueue) Front() (writeDetails, bool) {
	v, ok := q.queue.Front()
	if !ok {
		return writeDetails{}, false
	}
	return v.(writeDetails), true
}

func (q *pendingWriteQueue) PopFront() (writeDetails, bool) {
	v, ok := q.queue.PopFront()
	if !ok {
		return writeDetails{}, false
	}
	details := v.(writeDetails)
	q.totalBlocks -= details.TopHeight - details.BottomHeight + 1
	return details, true
}

// confirmedInfo is the in-memory override of an account's confirmation
// height while its write range is still queued.
type confirmedInfo struct {
	ConfirmedHeight  uint64
	IteratedFrontier nano.BlockHash
}

// accountsConfirmedCache maps accounts to their not-yet-flushed confirmation
// state, so a pass touching the same account twice sees its own updates
// before storage does. Owned exclusively by the engine's worker.
type accountsConfirmedCache struct {
	entries map[nano.Account]confirmedInfo
}

func newAccountsConfirmedCache() *accountsConfirmedCache {
	return &accountsConfirmedCache{entries: make(map[nano.Account]confirmedInfo)}
}

func (c *accountsConfirmedCache) Len() int {
	return len(c.entries)
}

func (c *accountsConfirmedCache) Get(account nano.Account) (confirmedInfo, bool) {
	info, ok := c.entries[account]
	return info, ok
}

func (c *accountsConfirmedCache) Put(account nano.Account, info confirmedInfo) {
	c.entries[account] = info
}

func (c *accountsConfirmedCache) Remove(account nano.Account) {
	delete(c.entries, account)
}

func (c *accountsConfirmedCache) Clear() {
	c.entries = make(map[nano.Account]confirmedInfo)
}
