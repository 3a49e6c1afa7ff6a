// Package timeline holds a per-endpoint bucketed ring of multi-layer
// results, the primary-check selector, and the suppression policy that
// turns a bucket into a filtered problems list.
package timeline

import (
	"fmt"
	"sync"

	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/probeadapter"
)

// SampleBucket is one tick's outcome for one endpoint.
type SampleBucket struct {
	BucketIndex uint64
	Results     map[endpoint.CheckKind]probeadapter.CheckResult
}

func NewBucket(index uint64) SampleBucket {
	return SampleBucket{BucketIndex: index, Results: make(map[endpoint.CheckKind]probeadapter.CheckResult)}
}

func (b SampleBucket) Empty() bool {
	return len(b.Results) == 0
}

// Timeline is a fixed-capacity ring of SampleBuckets for one endpoint.
// Append and Resize are the only mutators and are serialized by mu; snapshots copy
// out the current contents so readers never observe a partial write.
type Timeline struct {
	mu       sync.Mutex
	capacity int
	buckets  []SampleBucket
	nextIdx  uint64
	filled   int
}

func NewTimeline(capacity int) *Timeline {
	if capacity < 1 {
		capacity = 1
	}
	return &Timeline{
		capacity: capacity,
		buckets:  make([]SampleBucket, capacity),
	}
}

// Append adds bucket k+1 strictly after bucket k. A caller that skips
// or repeats an index gets an error rather than a silently corrupted
// ring.
func (t *Timeline) Append(bucket SampleBucket) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.filled > 0 && bucket.BucketIndex != t.nextIdx {
		return fmt.Errorf("timeline: out-of-order append: want index %d, got %d", t.nextIdx, bucket.BucketIndex)
	}
	if t.filled == 0 {
		t.nextIdx = bucket.BucketIndex
	}

	t.buckets[bucket.BucketIndex%uint64(t.capacity)] = bucket
	t.nextIdx = bucket.BucketIndex + 1
	if t.filled < t.capacity {
		t.filled++
	}
	return nil
}

// Snapshot returns the retained buckets ordered oldest to newest.
func (t *Timeline) Snapshot() []SampleBucket {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]SampleBucket, 0, t.filled)
	if t.filled == 0 {
		return out
	}

	oldestIdx := t.nextIdx - uint64(t.filled)
	for i := 0; i < t.filled; i++ {
		idx := oldestIdx + uint64(i)
		out = append(out, t.buckets[idx%uint64(t.capacity)])
	}
	return out
}

// Resize changes ring capacity, preserving the newest
// min(oldCapacity, newCapacity) buckets.
func (t *Timeline) Resize(newCapacity int) {
	if newCapacity < 1 {
		newCapacity = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if newCapacity == t.capacity {
		return
	}

	keep := t.filled
	if newCapacity < keep {
		keep = newCapacity
	}

	old := make([]SampleBucket, 0, keep)
	if t.filled > 0 {
		oldestIdx := t.nextIdx - uint64(t.filled)
		start := t.filled - keep
		for i := start; i < t.filled; i++ {
			idx := oldestIdx + uint64(i)
			old = append(old, t.buckets[idx%uint64(t.capacity)])
		}
	}

	t.buckets = make([]SampleBucket, newCapacity)
	t.capacity = newCapacity
	t.filled = 0
	for _, b := range old {
		t.buckets[b.BucketIndex%uint64(newCapacity)] = b
		t.filled++
	}
	// nextIdx is unaffected: append() still expects the same next index.
}

func (t *Timeline) Capacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.capacity
}
