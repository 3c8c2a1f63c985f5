package domain

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// bountyLocks serializes mutations per bounty. Two bounties may share a
// shard; that only costs contention, never correctness.
type bountyLocks struct {
	shards [lockShards]sync.Mutex
}

func newBountyLocks() *bountyLocks {
	return &bountyLocks{}
}

func (l *bountyLocks) lock(bountyID string) func() {
	h := fnv.New32a()
	h.Write([]byte(bountyID))
	mu := &l.shards[h.Sum32()%lockShards]
	mu.Lock()
	return mu.Unlock
}
