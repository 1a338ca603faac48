package coordinator

import (
	"flag"

	"github.com/atropos-rl/coordinator/pkg/util"
)

// Config for the Coordinator.
type Config struct {
	// Banner served on GET /.
	Banner string `yaml:"banner"`

	// Enable to log every ingested group to help debug environment submissions.
	LogReceivedGroups bool `yaml:"log_received_groups"`
}

// RegisterFlagsAndApplyDefaults registers flags and applies defaults
func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	cfg.Banner = "atropos rollout coordinator, ready"

	f.BoolVar(&cfg.LogReceivedGroups, util.PrefixConfig(prefix, "log-received-groups"), false, "Enable to log every received scored group to help debug ingestion.")
}
