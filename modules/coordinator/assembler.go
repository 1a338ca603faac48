package coordinator

import (
	"math"

	"github.com/atropos-rl/coordinator/pkg/model"
)

// assembleBatches is a pure function from a queue snapshot, the env registry
// and the batch target to zero or more complete batches plus the leftover
// queue. A batch is emitted only when its cardinality sum equals batchSize
// exactly; groups are atomic and never split. When no further batch can be
// formed the queue comes back with the unfinished pulls still in place, in
// their original order.
func assembleBatches(queue []*model.ScoredGroup, envs []*environment, batchSize int) ([][]*model.ScoredGroup, []*model.ScoredGroup) {
	if batchSize <= 0 || len(queue) == 0 {
		return nil, queue
	}
	for _, env := range envs {
		if env.MinBatchAllocation != nil {
			return assembleWithMinimums(queue, envs, batchSize)
		}
	}
	return assembleGreedy(queue, batchSize)
}

// assembleGreedy pulls from the head of the queue, skipping groups that would
// overshoot, until the target is hit exactly. Skipped groups keep their
// relative order in the leftover queue.
func assembleGreedy(queue []*model.ScoredGroup, batchSize int) ([][]*model.ScoredGroup, []*model.ScoredGroup) {
	var batches [][]*model.ScoredGroup
	q := queue

	for {
		var picked, rest []*model.ScoredGroup
		sum := 0
		i := 0
		for ; i < len(q); i++ {
			g := q[i]
			if sum+g.Cardinality() <= batchSize {
				picked = append(picked, g)
				sum += g.Cardinality()
			} else {
				rest = append(rest, g)
			}
			if sum == batchSize {
				i++
				break
			}
		}
		if sum != batchSize {
			// Queue drained without an exact fit: q is untouched.
			break
		}
		rest = append(rest, q[i:]...)
		batches = append(batches, picked)
		q = rest
	}

	return batches, q
}

// assembleWithMinimums reserves each connected environment's minimum share by
// walking the queue tail to head, then fills the remainder from the head.
// Reservations are processed in registration order. A round that cannot meet
// every reservation, or cannot fill to the exact target, aborts with the
// queue intact: a batch below any environment's floor is never emitted.
func assembleWithMinimums(queue []*model.ScoredGroup, envs []*environment, batchSize int) ([][]*model.ScoredGroup, []*model.ScoredGroup) {
	var batches [][]*model.ScoredGroup
	q := queue

	for {
		taken := make([]bool, len(q))
		var batch []*model.ScoredGroup
		sum := 0

		reserved := true
		for _, env := range envs {
			if !env.Connected || env.MinBatchAllocation == nil {
				continue
			}
			minSeqs := int(math.Ceil(float64(batchSize) * *env.MinBatchAllocation))
			got := 0
			for i := len(q) - 1; i >= 0 && got < minSeqs; i-- {
				if taken[i] {
					continue
				}
				g := q[i]
				if g.EnvID == nil || *g.EnvID != env.RegisteredID {
					continue
				}
				if sum+g.Cardinality() > batchSize {
					continue
				}
				taken[i] = true
				batch = append(batch, g)
				sum += g.Cardinality()
				got += g.Cardinality()
			}
			if got < minSeqs {
				reserved = false
				break
			}
		}
		if !reserved {
			break
		}

		for i := 0; i < len(q) && sum < batchSize; i++ {
			if taken[i] {
				continue
			}
			if sum+q[i].Cardinality() > batchSize {
				continue
			}
			taken[i] = true
			batch = append(batch, q[i])
			sum += q[i].Cardinality()
		}

		if sum != batchSize {
			// Reservations plus filler fell short. taken is discarded, so the
			// queue is exactly as it was.
			break
		}

		var rest []*model.ScoredGroup
		for i, g := range q {
			if !taken[i] {
				rest = append(rest, g)
			}
		}
		batches = append(batches, batch)
		q = rest
	}

	return batches, q
}
