package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/atropos-rl/coordinator/pkg/model"
)

// environment is one registered environment. Entries are appended in
// registration order and never removed, so RegisteredID doubles as the index
// into the registry. GroupSize only moves upward once submissions larger than
// the declared size are observed.
type environment struct {
	RegisteredID       int
	DesiredName        string
	RealName           string
	MaxContextLen      int
	Weight             float64
	GroupSize          int
	MinBatchAllocation *float64
	Connected          bool
	LastUpdate         time.Time
}

// runState is the trainer-supplied run configuration plus the serving
// counters derived from it.
type runState struct {
	RunGroup               string
	RunProject             string
	BatchSize              int
	MaxTokenLen            int
	StartingStep           int
	NumSteps               int
	SaveCheckpointInterval int
	CheckpointDir          string

	CurrentStep int
	Started     bool
}

// Coordinator is the in-memory control plane between environment workers and
// trainers: it ingests scored groups, recombines off-size submissions,
// assembles exact-size batches and tracks the run step counter. All state is
// guarded by a single mutex; every public method is linearisable.
type Coordinator struct {
	services.Service

	cfg     Config
	logger  log.Logger
	metrics *coordinatorMetrics

	mtx          sync.Mutex
	run          runState
	trainerUUIDs []string
	envs         []*environment
	queue        []*model.ScoredGroup
	latest       *model.ScoredGroup
	regroup      map[int][]*model.ScoredGroup
	batchCache   [][]*model.ScoredGroup
}

// New makes a new Coordinator.
func New(cfg Config, logger log.Logger, reg prometheus.Registerer) (*Coordinator, error) {
	c := &Coordinator{
		cfg:     cfg,
		logger:  logger,
		metrics: newCoordinatorMetrics(reg),
		regroup: map[int][]*model.ScoredGroup{},
	}

	c.Service = services.NewBasicService(nil, c.running, nil)
	return c, nil
}

func (c *Coordinator) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// RegisterTrainer fixes the run parameters and mints a trainer uuid. With an
// empty queue the registration is authoritative: it replaces the run and
// clears the env registry, regroup buffers and batch cache, which is what
// makes a warm restart possible without bouncing the process. With a
// non-empty queue the parameters are ignored so data-parallel replicas can
// attach to the live run.
func (c *Coordinator) RegisterTrainer(req *model.RegisterTrainerRequest) string {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	id := uuid.New().String()

	if len(c.queue) == 0 {
		c.run = runState{
			RunGroup:               req.RunGroup,
			RunProject:             req.RunProject,
			BatchSize:              req.BatchSize,
			MaxTokenLen:            req.MaxTokenLen,
			StartingStep:           req.StartingStep,
			NumSteps:               req.NumSteps,
			SaveCheckpointInterval: req.SaveCheckpointInterval,
			CheckpointDir:          req.CheckpointDir,
			CurrentStep:            req.StartingStep,
		}
		c.envs = nil
		c.regroup = map[int][]*model.ScoredGroup{}
		c.batchCache = nil
		c.trainerUUIDs = []string{id}
		c.metrics.currentStep.Set(float64(c.run.CurrentStep))
		c.metrics.connectedEnvs.Set(0)
		c.syncBufferMetricsLocked()

		level.Info(c.logger).Log("msg", "run registered", "group", req.RunGroup, "project", req.RunProject,
			"batch_size", req.BatchSize, "max_token_len", req.MaxTokenLen, "num_steps", req.NumSteps)
		return id
	}

	// A run is live. Keep its parameters, just record another trainer.
	c.trainerUUIDs = append(c.trainerUUIDs, id)
	level.Info(c.logger).Log("msg", "additional trainer attached to live run", "trainers", len(c.trainerUUIDs))
	return id
}

// RegisterEnv adds an environment descriptor. It is refused until the first
// batch poll so that environments cannot race a trainer that has not yet
// confirmed the run parameters.
func (c *Coordinator) RegisterEnv(req *model.RegisterEnvRequest) *model.RegisterEnvResponse {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !c.run.Started {
		return &model.RegisterEnvResponse{Status: statusWaitForTrainer}
	}

	sameName := 0
	for _, e := range c.envs {
		if e.DesiredName == req.DesiredName {
			sameName++
		}
	}

	weight := 1.0
	if req.Weight != nil {
		weight = *req.Weight
	}

	env := &environment{
		RegisteredID:       len(c.envs),
		DesiredName:        req.DesiredName,
		RealName:           fmt.Sprintf("%s_%d", req.DesiredName, sameName),
		MaxContextLen:      req.MaxTokenLength,
		Weight:             weight,
		GroupSize:          req.GroupSize,
		MinBatchAllocation: req.MinBatchAllocation,
		Connected:          true,
		LastUpdate:         time.Now(),
	}
	c.envs = append(c.envs, env)
	c.metrics.connectedEnvs.Set(float64(c.connectedEnvsLocked()))

	level.Info(c.logger).Log("msg", "environment registered", "env_id", env.RegisteredID,
		"name", env.RealName, "group_size", env.GroupSize, "weight", env.Weight)

	id := env.RegisteredID
	return &model.RegisterEnvResponse{
		Status:             statusSuccess,
		EnvID:              &id,
		RunName:            env.RealName,
		CheckpointDir:      c.run.CheckpointDir,
		StartingStep:       c.run.StartingStep,
		CheckpointInterval: c.run.SaveCheckpointInterval,
		NumSteps:           c.run.NumSteps,
	}
}

// DisconnectEnv marks an environment as disconnected. The descriptor stays in
// the registry so queued groups carrying its id remain attributable.
// Disconnecting twice is fine; an id outside the registry is a failure.
func (c *Coordinator) DisconnectEnv(envID int) *model.StatusResult {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if envID < 0 || envID >= len(c.envs) {
		return &model.StatusResult{
			Status: statusFailure,
			Error:  fmt.Sprintf("env_id %d is not registered", envID),
		}
	}

	c.envs[envID].Connected = false
	c.envs[envID].LastUpdate = time.Now()
	c.metrics.connectedEnvs.Set(float64(c.connectedEnvsLocked()))
	level.Info(c.logger).Log("msg", "environment disconnected", "env_id", envID)
	return &model.StatusResult{Status: statusSuccess}
}

// NextBatch serves one batch to a trainer, or nil when nothing can be
// assembled yet. The first call flips the started flag, which unblocks
// environment registration. When one assembly pass yields several batches the
// remainder is cached and served last-first on subsequent calls.
func (c *Coordinator) NextBatch() []*model.ScoredGroup {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !c.run.Started {
		c.run.Started = true
		level.Info(c.logger).Log("msg", "run started, serving batches", "batch_size", c.run.BatchSize)
	}

	if n := len(c.batchCache); n > 0 {
		batch := c.batchCache[n-1]
		c.batchCache = c.batchCache[:n-1]
		c.metrics.batchesServed.Inc()
		return batch
	}

	batches, rest := assembleBatches(c.queue, c.envs, c.run.BatchSize)
	if len(batches) == 0 {
		return nil
	}

	c.queue = rest
	c.run.CurrentStep += len(batches)
	c.metrics.currentStep.Set(float64(c.run.CurrentStep))
	c.syncQueueMetricsLocked()

	batch := batches[len(batches)-1]
	c.batchCache = batches[:len(batches)-1]
	c.metrics.batchesServed.Inc()

	level.Debug(c.logger).Log("msg", "batches assembled", "count", len(batches), "step", c.run.CurrentStep)
	return batch
}

// LatestExample returns the most recently accepted group, or the canonical
// zero group when nothing has been submitted yet.
func (c *Coordinator) LatestExample() *model.ScoredGroup {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.latest == nil {
		return model.ZeroScoredGroup()
	}
	return c.latest
}

func (c *Coordinator) Info() *model.InfoResponse {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return &model.InfoResponse{
		BatchSize:   c.run.BatchSize,
		MaxTokenLen: c.run.MaxTokenLen,
	}
}

func (c *Coordinator) RunInfo() *model.RunInfoResponse {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return &model.RunInfoResponse{
		Group:   c.run.RunGroup,
		Project: c.run.RunProject,
	}
}

func (c *Coordinator) Status() *model.StatusResponse {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return &model.StatusResponse{
		CurrentStep: c.run.CurrentStep,
		QueueSize:   len(c.queue),
	}
}

func (c *Coordinator) Health() *model.HealthResponse {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return &model.HealthResponse{
		Status:    "healthy",
		Started:   c.run.Started,
		QueueSize: len(c.queue),
		Envs:      len(c.envs),
		Step:      c.run.CurrentStep,
	}
}

// Reset re-initialises all coordinator state to the empty-run defaults.
func (c *Coordinator) Reset() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.run = runState{}
	c.trainerUUIDs = nil
	c.envs = nil
	c.queue = nil
	c.latest = nil
	c.regroup = map[int][]*model.ScoredGroup{}
	c.batchCache = nil

	c.metrics.currentStep.Set(0)
	c.metrics.connectedEnvs.Set(0)
	c.syncQueueMetricsLocked()
	c.syncBufferMetricsLocked()

	level.Info(c.logger).Log("msg", "coordinator state reset")
}

func (c *Coordinator) connectedEnvsLocked() int {
	n := 0
	for _, e := range c.envs {
		if e.Connected {
			n++
		}
	}
	return n
}

func (c *Coordinator) syncQueueMetricsLocked() {
	seqs := 0
	for _, g := range c.queue {
		seqs += g.Cardinality()
	}
	c.metrics.queueGroups.Set(float64(len(c.queue)))
	c.metrics.queueSequences.Set(float64(seqs))
}

func (c *Coordinator) syncBufferMetricsLocked() {
	seqs := 0
	for _, buf := range c.regroup {
		for _, g := range buf {
			seqs += g.Cardinality()
		}
	}
	c.metrics.bufferedSequences.Set(float64(seqs))
}

const (
	statusSuccess        = "success"
	statusFailure        = "failure"
	statusReceived       = "received"
	statusAccepted       = "accepted"
	statusBuffered       = "buffered"
	statusWaitForTrainer = "wait for trainer to start"
)
