package model

import "fmt"

// Validation ranges for trainer and environment registration. Payloads outside
// these bounds are rejected with a 400 before touching coordinator state.
const (
	MinBatchSize = 1
	MaxBatchSize = 1024

	MinTokenLen = 1
	MaxTokenLen = 131072

	MinGroupSize = 1
	MaxGroupSize = 1024

	MaxEnvWeight = 100.0
)

// RegisterTrainerRequest fixes the run parameters. When the queue is empty
// this registration is authoritative and replaces the current run; otherwise
// it only mints an additional trainer uuid.
type RegisterTrainerRequest struct {
	RunGroup               string `json:"run_group"`
	RunProject             string `json:"run_project"`
	BatchSize              int    `json:"batch_size"`
	MaxTokenLen            int    `json:"max_token_len"`
	StartingStep           int    `json:"starting_step"`
	NumSteps               int    `json:"num_steps"`
	SaveCheckpointInterval int    `json:"save_checkpoint_interval"`
	CheckpointDir          string `json:"checkpoint_dir"`
}

func (r *RegisterTrainerRequest) Validate() error {
	if r.BatchSize < MinBatchSize || r.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size: must be in [%d, %d], got %d", MinBatchSize, MaxBatchSize, r.BatchSize)
	}
	if r.MaxTokenLen < MinTokenLen || r.MaxTokenLen > MaxTokenLen {
		return fmt.Errorf("max_token_len: must be in [%d, %d], got %d", MinTokenLen, MaxTokenLen, r.MaxTokenLen)
	}
	if r.StartingStep < 0 {
		return fmt.Errorf("starting_step: must be non-negative, got %d", r.StartingStep)
	}
	return nil
}

// RegisterTrainerResponse carries the opaque identity token minted for the
// trainer. The coordinator never interprets it.
type RegisterTrainerResponse struct {
	UUID string `json:"uuid"`
}

// RegisterEnvRequest declares an environment: its context budget, relative
// weight, expected submission cardinality and optional batch floor.
type RegisterEnvRequest struct {
	MaxTokenLength     int      `json:"max_token_length"`
	DesiredName        string   `json:"desired_name"`
	Weight             *float64 `json:"weight,omitempty"`
	GroupSize          int      `json:"group_size"`
	MinBatchAllocation *float64 `json:"min_batch_allocation,omitempty"`
}

func (r *RegisterEnvRequest) Validate() error {
	if r.MaxTokenLength < MinTokenLen || r.MaxTokenLength > MaxTokenLen {
		return fmt.Errorf("max_token_length: must be in [%d, %d], got %d", MinTokenLen, MaxTokenLen, r.MaxTokenLength)
	}
	if r.GroupSize < MinGroupSize || r.GroupSize > MaxGroupSize {
		return fmt.Errorf("group_size: must be in [%d, %d], got %d", MinGroupSize, MaxGroupSize, r.GroupSize)
	}
	if r.Weight != nil && (*r.Weight <= 0 || *r.Weight > MaxEnvWeight) {
		return fmt.Errorf("weight: must be in (0, %v], got %v", MaxEnvWeight, *r.Weight)
	}
	if r.MinBatchAllocation != nil && (*r.MinBatchAllocation < 0 || *r.MinBatchAllocation > 1) {
		return fmt.Errorf("min_batch_allocation: must be in [0, 1], got %v", *r.MinBatchAllocation)
	}
	return nil
}

// RegisterEnvResponse echoes the run configuration back to a successfully
// registered environment. Status is "wait for trainer to start" when
// registration is attempted before the first batch poll.
type RegisterEnvResponse struct {
	Status             string `json:"status"`
	EnvID              *int   `json:"env_id,omitempty"`
	RunName            string `json:"run_name,omitempty"`
	CheckpointDir      string `json:"checkpoint_dir,omitempty"`
	StartingStep       int    `json:"starting_step"`
	CheckpointInterval int    `json:"checkpoint_interval"`
	NumSteps           int    `json:"num_steps"`
}

type DisconnectEnvRequest struct {
	EnvID *int `json:"env_id"`
}

func (r *DisconnectEnvRequest) Validate() error {
	if r.EnvID == nil {
		return fmt.Errorf("env_id: required")
	}
	if *r.EnvID < 0 || *r.EnvID > MaxEnvID {
		return fmt.Errorf("env_id: must be in [0, %d], got %d", MaxEnvID, *r.EnvID)
	}
	return nil
}

// StatusResult is the generic ordering-error surface: failures that are part
// of the protocol (unknown env id, already disconnected) come back with 200
// and a status field rather than an HTTP error.
type StatusResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type ScoredResponse struct {
	Status     string `json:"status"`
	BufferSize *int   `json:"buffer_size,omitempty"`
}

type ScoredListResponse struct {
	Status          string `json:"status"`
	GroupsProcessed int    `json:"groups_processed"`
	Buffered        int    `json:"buffered,omitempty"`
	LastBufferSize  *int   `json:"last_buffer_size,omitempty"`
}

type BatchResponse struct {
	Batch []*ScoredGroup `json:"batch"`
}

type InfoResponse struct {
	BatchSize   int `json:"batch_size"`
	MaxTokenLen int `json:"max_token_len"`
}

type RunInfoResponse struct {
	Group   string `json:"group"`
	Project string `json:"project"`
}

type StatusResponse struct {
	CurrentStep int `json:"current_step"`
	QueueSize   int `json:"queue_size"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Started   bool   `json:"started"`
	QueueSize int    `json:"queue_size"`
	Envs      int    `json:"envs"`
	Step      int    `json:"step"`
}

// EnvStatusResponse is the fair-share report environments poll to
// self-throttle. QueueSize and SelfQueueSize are normalised by the env's
// (possibly inflated) group size.
type EnvStatusResponse struct {
	CurrentStep         int     `json:"current_step"`
	QueueSize           int     `json:"queue_size"`
	UnallocatedFraction float64 `json:"unallocated_fraction"`
	SelfQueueSize       int     `json:"self_queue_size"`
	MaxGroupSize        int     `json:"max_group_size"`
	EnvWeight           float64 `json:"env_weight"`
}

// ErrorResponse is the body of every 400/500.
type ErrorResponse struct {
	Error string `json:"error"`
}
