package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alecthomas/kong"
	jsoniter "github.com/json-iterator/go"
)

type globalOptions struct {
	Endpoint string
	client   *http.Client
}

var cli struct {
	Endpoint string `help:"Base URL of a running coordinator." default:"http://localhost:8000"`

	Status    statusCmd    `cmd:"" help:"Show the run status and queue depth."`
	Health    healthCmd    `cmd:"" help:"Show the coordinator health summary."`
	Info      infoCmd      `cmd:"" help:"Show the batch size and max token length."`
	RunInfo   runInfoCmd   `cmd:"" name:"run-info" help:"Show the run group and project."`
	StatusEnv statusEnvCmd `cmd:"" name:"status-env" help:"Show the fair-share report for one environment."`
	Latest    latestCmd    `cmd:"" help:"Dump the most recently accepted scored group."`
	Reset     resetCmd     `cmd:"" help:"Reset all coordinator state."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("coordinator-cli"),
		kong.Description("Inspect and manage a running rollout coordinator."),
		kong.UsageOnError(),
	)

	opts := &globalOptions{
		Endpoint: cli.Endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}

	err := ctx.Run(opts)
	ctx.FatalIfErrorf(err)
}

// getJSON fetches path and decodes the response body into v.
func getJSON(opts *globalOptions, path string, v interface{}) error {
	resp, err := opts.client.Get(opts.Endpoint + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, string(body))
	}
	return jsoniter.Unmarshal(body, v)
}
