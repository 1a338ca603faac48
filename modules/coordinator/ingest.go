package coordinator

import (
	"github.com/go-kit/log/level"

	"github.com/atropos-rl/coordinator/pkg/model"
)

// ProcessScored ingests one scored group. Groups without a usable env_id and
// groups that already match their environment's declared size go straight to
// the queue; everything else lands in the env's regroup buffer until a subset
// of buffered entries sums to exactly the declared size.
func (c *Coordinator) ProcessScored(g *model.ScoredGroup) *model.ScoredResponse {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.processScoredLocked(g)
}

// ProcessScoredList ingests groups in order. Each submission is independent;
// the aggregate response reports how many were buffered rather than queued.
func (c *Coordinator) ProcessScoredList(groups []*model.ScoredGroup) *model.ScoredListResponse {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	resp := &model.ScoredListResponse{Status: statusReceived}
	for _, g := range groups {
		r := c.processScoredLocked(g)
		resp.GroupsProcessed++
		if r.Status == statusBuffered {
			resp.Buffered++
			resp.LastBufferSize = r.BufferSize
		}
	}
	return resp
}

func (c *Coordinator) processScoredLocked(g *model.ScoredGroup) *model.ScoredResponse {
	if c.cfg.LogReceivedGroups {
		level.Info(c.logger).Log("msg", "received scored group", "cardinality", g.Cardinality(), "env_id", envIDString(g))
	}

	// No env to attribute the group to: accept it as-is.
	if g.EnvID == nil || *g.EnvID >= len(c.envs) {
		c.pushLocked(g)
		c.metrics.groupsReceived.WithLabelValues(statusAccepted).Inc()
		return &model.ScoredResponse{Status: statusAccepted}
	}

	env := c.envs[*g.EnvID]
	if g.Cardinality() == env.GroupSize {
		c.pushLocked(g)
		c.metrics.groupsReceived.WithLabelValues(statusReceived).Inc()
		return &model.ScoredResponse{Status: statusReceived}
	}

	// Off-size submission: stage it and try to carve out an exact fit.
	buf := append(c.regroup[env.RegisteredID], g)
	picked := exactFitSubset(buf, env.GroupSize)
	if picked != nil {
		// Remove in descending index order so earlier indices stay valid,
		// pushing each removed entry as it goes. The queue therefore receives
		// the chosen entries highest-index first.
		for i := len(picked) - 1; i >= 0; i-- {
			idx := picked[i]
			c.pushLocked(buf[idx])
			buf = append(buf[:idx], buf[idx+1:]...)
		}
		level.Debug(c.logger).Log("msg", "regrouped buffered submissions", "env_id", env.RegisteredID,
			"flushed", len(picked), "group_size", env.GroupSize)
	}
	c.regroup[env.RegisteredID] = buf
	c.syncBufferMetricsLocked()
	c.metrics.groupsReceived.WithLabelValues(statusBuffered).Inc()

	size := bufferedSequences(buf)
	return &model.ScoredResponse{Status: statusBuffered, BufferSize: &size}
}

// exactFitSubset walks the buffer in order greedily picking entries that do
// not overshoot the remaining target. It returns the picked indices
// (ascending) when they sum to exactly target, nil otherwise.
func exactFitSubset(buf []*model.ScoredGroup, target int) []int {
	remaining := target
	var picked []int
	for i, g := range buf {
		card := g.Cardinality()
		if card <= remaining {
			picked = append(picked, i)
			remaining -= card
		}
		if remaining == 0 {
			return picked
		}
	}
	return nil
}

func bufferedSequences(buf []*model.ScoredGroup) int {
	n := 0
	for _, g := range buf {
		n += g.Cardinality()
	}
	return n
}

func (c *Coordinator) pushLocked(g *model.ScoredGroup) {
	c.queue = append(c.queue, g)
	c.latest = g
	c.syncQueueMetricsLocked()
}

func envIDString(g *model.ScoredGroup) interface{} {
	if g.EnvID == nil {
		return "none"
	}
	return *g.EnvID
}
