package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring consistently maps keys onto a fixed number of shards
type ring struct {
	points *treemap.Map

	// Cached since treemap.Map.Min() is O(log n)
	first int
}

// newRing places replicas points on the ring for each of the shards
func newRing(shards, replicas int) *ring {
	points := treemap.NewWith(utils.Int64Comparator)

	shardBytes := make([]byte, 4)
	replicaBytes := make([]byte, 4)
	for shard := 0; shard < shards; shard++ {
		binary.LittleEndian.PutUint32(shardBytes, uint32(shard))
		for replica := 0; replica < replicas; replica++ {
			binary.LittleEndian.PutUint32(replicaBytes, uint32(replica))

			hasher := murmur3.New128()
			hasher.Write(shardBytes)
			hasher.Write(replicaBytes)
			hash, _ := hasher.Sum128()
			points.Put(int64(hash), shard)
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// shard returns the shard owning key
func (r *ring) shard(key []byte) int {
	hash, _ := murmur3.Sum128(key)
	if _, shard := r.points.Ceiling(int64(hash)); shard != nil {
		return shard.(int)
	}
	return r.first
}
