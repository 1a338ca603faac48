package coordinator

import (
	"math"
	"time"

	"github.com/atropos-rl/coordinator/pkg/model"
)

// minEnvWeight floors the normalised weight so a heavily outweighed
// environment still generates some data.
const minEnvWeight = 0.01

// EnvStatus computes the fair-share report for one environment: its
// normalised weight across connected environments, the unallocated batch
// fraction, and queue depths normalised by the env's group size. As a side
// effect the env's group size is raised to the largest cardinality it has
// queued, so the coordinator learns upward from oversized submissions.
func (c *Coordinator) EnvStatus(envID int) *model.EnvStatusResponse {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	var env *environment
	if envID >= 0 && envID < len(c.envs) {
		env = c.envs[envID]
	}

	totalWeight := 0.0
	minSum := 0.0
	for _, e := range c.envs {
		if !e.Connected {
			continue
		}
		totalWeight += float64(e.MaxContextLen) * math.Max(0, e.Weight)
		if e.MinBatchAllocation != nil {
			minSum += *e.MinBatchAllocation
		}
	}

	envWeight := 1.0
	if env != nil && totalWeight > 0 {
		envWeight = math.Max(minEnvWeight, float64(env.MaxContextLen)*env.Weight/totalWeight)
	}

	unallocated := 1 - math.Min(1, minSum)

	// One pass over the queue: global max cardinality, plus this env's own
	// footprint.
	maxGroupSize := 1
	selfSequences := 0
	envMaxCard := 0
	for _, g := range c.queue {
		card := g.Cardinality()
		if card > maxGroupSize {
			maxGroupSize = card
		}
		if g.EnvID != nil && *g.EnvID == envID {
			selfSequences += card
			if card > envMaxCard {
				envMaxCard = card
			}
		}
	}

	groupSize := 1
	if env != nil {
		if envMaxCard > env.GroupSize {
			env.GroupSize = envMaxCard
		}
		env.LastUpdate = time.Now()
		groupSize = env.GroupSize
	} else if envMaxCard > 0 {
		groupSize = envMaxCard
	}

	return &model.EnvStatusResponse{
		CurrentStep:         c.run.CurrentStep,
		QueueSize:           len(c.queue) / groupSize,
		UnallocatedFraction: unallocated,
		SelfQueueSize:       selfSequences / groupSize,
		MaxGroupSize:        maxGroupSize,
		EnvWeight:           envWeight,
	}
}
