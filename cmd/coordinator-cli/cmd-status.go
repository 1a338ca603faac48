package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/atropos-rl/coordinator/pkg/api"
	"github.com/atropos-rl/coordinator/pkg/model"
)

type statusCmd struct{}

func (cmd *statusCmd) Run(opts *globalOptions) error {
	status := &model.StatusResponse{}
	if err := getJSON(opts, api.PathStatus, status); err != nil {
		return err
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.Header([]string{"current step", "queue size"})
	w.Append([]string{strconv.Itoa(status.CurrentStep), strconv.Itoa(status.QueueSize)})
	w.Render()
	return nil
}

type healthCmd struct{}

func (cmd *healthCmd) Run(opts *globalOptions) error {
	health := &model.HealthResponse{}
	if err := getJSON(opts, api.PathHealth, health); err != nil {
		return err
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.Header([]string{"status", "started", "queue size", "envs", "step"})
	w.Append([]string{
		health.Status,
		strconv.FormatBool(health.Started),
		strconv.Itoa(health.QueueSize),
		strconv.Itoa(health.Envs),
		strconv.Itoa(health.Step),
	})
	w.Render()
	return nil
}

type infoCmd struct{}

func (cmd *infoCmd) Run(opts *globalOptions) error {
	info := &model.InfoResponse{}
	if err := getJSON(opts, api.PathInfo, info); err != nil {
		return err
	}

	fmt.Printf("batch_size: %d\nmax_token_len: %d\n", info.BatchSize, info.MaxTokenLen)
	return nil
}

type runInfoCmd struct{}

func (cmd *runInfoCmd) Run(opts *globalOptions) error {
	info := &model.RunInfoResponse{}
	if err := getJSON(opts, api.PathRunInfo, info); err != nil {
		return err
	}

	fmt.Printf("group: %s\nproject: %s\n", info.Group, info.Project)
	return nil
}

type statusEnvCmd struct {
	EnvID int `arg:"" help:"registered id of the environment"`
}

func (cmd *statusEnvCmd) Run(opts *globalOptions) error {
	status := &model.EnvStatusResponse{}
	path := fmt.Sprintf("%s?%s=%d", api.PathStatusEnv, api.URLParamEnvID, cmd.EnvID)
	if err := getJSON(opts, path, status); err != nil {
		return err
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.Header([]string{"step", "queue", "self queue", "max group", "env weight", "unallocated"})
	w.Append([]string{
		strconv.Itoa(status.CurrentStep),
		strconv.Itoa(status.QueueSize),
		strconv.Itoa(status.SelfQueueSize),
		strconv.Itoa(status.MaxGroupSize),
		strconv.FormatFloat(status.EnvWeight, 'f', 4, 64),
		strconv.FormatFloat(status.UnallocatedFraction, 'f', 4, 64),
	})
	w.Render()
	return nil
}

type latestCmd struct{}

func (cmd *latestCmd) Run(opts *globalOptions) error {
	resp, err := opts.client.Get(opts.Endpoint + api.PathLatestExample)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d: %s", api.PathLatestExample, resp.StatusCode, string(body))
	}

	fmt.Println(string(body))
	return nil
}

type resetCmd struct{}

func (cmd *resetCmd) Run(opts *globalOptions) error {
	resp, err := opts.client.Get(opts.Endpoint + api.PathResetData)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d: %s", api.PathResetData, resp.StatusCode, string(body))
	}

	fmt.Println(string(body))
	return nil
}
