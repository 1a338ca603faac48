package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atropos-rl/coordinator/pkg/model"
)

func registerWeightedEnv(t *testing.T, c *Coordinator, weight float64, minBatchAllocation *float64) int {
	t.Helper()

	resp := c.RegisterEnv(&model.RegisterEnvRequest{
		MaxTokenLength:     256,
		DesiredName:        "env",
		Weight:             &weight,
		GroupSize:          4,
		MinBatchAllocation: minBatchAllocation,
	})
	require.Equal(t, "success", resp.Status)
	return *resp.EnvID
}

func TestEnvWeightNormalisation(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 4)

	env0 := registerWeightedEnv(t, c, 1.0, nil)
	env1 := registerWeightedEnv(t, c, 3.0, nil)

	assert.InDelta(t, 0.25, c.EnvStatus(env0).EnvWeight, 1e-9)
	assert.InDelta(t, 0.75, c.EnvStatus(env1).EnvWeight, 1e-9)
}

func TestEnvWeightNoConnectedEnvs(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 4)

	// Nothing registered at all: weight defaults to 1.0.
	assert.Equal(t, 1.0, c.EnvStatus(0).EnvWeight)
}

func TestEnvWeightExcludesDisconnected(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 4)

	env0 := registerWeightedEnv(t, c, 1.0, nil)
	env1 := registerWeightedEnv(t, c, 1.0, nil)

	// With both connected each holds half.
	assert.InDelta(t, 0.5, c.EnvStatus(env0).EnvWeight, 1e-9)

	// Disconnecting env0 removes it from the denominator but its own report
	// still computes: its share is now its full numerator over env1's total.
	require.Equal(t, "success", c.DisconnectEnv(env0).Status)
	assert.InDelta(t, 1.0, c.EnvStatus(env0).EnvWeight, 1e-9)
	assert.InDelta(t, 1.0, c.EnvStatus(env1).EnvWeight, 1e-9)
}

func TestEnvWeightFloor(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 4)

	env0 := registerWeightedEnv(t, c, 0.001, nil)
	registerWeightedEnv(t, c, 100.0, nil)

	// env0's raw share is ~1e-5; the floor keeps it generating data.
	assert.Equal(t, 0.01, c.EnvStatus(env0).EnvWeight)
}

func TestUnallocatedFractionClamped(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 10)

	env0 := registerWeightedEnv(t, c, 1.0, minAlloc(0.5))
	registerWeightedEnv(t, c, 1.0, minAlloc(0.4))
	registerWeightedEnv(t, c, 1.0, minAlloc(0.3))

	// 0.5+0.4+0.3 > 1, clamped at zero.
	assert.Equal(t, 0.0, c.EnvStatus(env0).UnallocatedFraction)
}

func TestUnallocatedFraction(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 10)

	env0 := registerWeightedEnv(t, c, 1.0, minAlloc(0.6))
	registerWeightedEnv(t, c, 1.0, nil)

	assert.InDelta(t, 0.4, c.EnvStatus(env0).UnallocatedFraction, 1e-9)
}

func TestEnvStatusQueueProjection(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 16)
	envID := registerEnv(t, c, 4)

	c.ProcessScored(testEnvGroup(4, envID))
	c.ProcessScored(testEnvGroup(4, envID))
	c.ProcessScored(testGroup(4))

	status := c.EnvStatus(envID)
	assert.Equal(t, 0, status.CurrentStep)

	// 3 groups queued, normalised by group size 4 this floors to 0.
	assert.Equal(t, 0, status.QueueSize)
	// 8 of this env's sequences queued over group size 4.
	assert.Equal(t, 2, status.SelfQueueSize)
	assert.Equal(t, 4, status.MaxGroupSize)
}

func TestEnvStatusGroupSizeInflation(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 16)
	envID := registerEnv(t, c, 4)

	// An oversize group attributed to this env sitting in the queue teaches
	// the coordinator the bigger size. This happens when a run is warm
	// restarted with a smaller declared size while old groups are queued.
	g := testEnvGroup(8, envID)
	c.mtx.Lock()
	c.pushLocked(g)
	c.mtx.Unlock()

	status := c.EnvStatus(envID)
	assert.Equal(t, 8, c.envs[envID].GroupSize)
	assert.Equal(t, 8, status.MaxGroupSize)

	// Inflation never reverses.
	c.EnvStatus(envID)
	assert.Equal(t, 8, c.envs[envID].GroupSize)
}

func TestEnvStatusUnknownEnv(t *testing.T) {
	c := newTestCoordinator(t)
	startRun(t, c, 4)

	status := c.EnvStatus(42)
	assert.Equal(t, 1.0, status.EnvWeight)
	assert.Equal(t, 1, status.MaxGroupSize)
	assert.Zero(t, status.SelfQueueSize)
}
