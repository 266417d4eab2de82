package config

import (
	"os"
	"time"

	"github.com/ipfs-force-community/metrics"
	"github.com/pelletier/go-toml"

	"github.com/fairwind-labs/mintgate/lifecycle"
	"github.com/fairwind-labs/mintgate/types"
)

const (
	// Configuration file name
	ConfigFile = "config.toml"
)

type Config struct {
	API       *APIConfig
	Pairing   *PairingConfig
	Session   *SessionConfig
	Lifecycle *LifecycleConfig
	Metrics   *metrics.MetricsConfig
	Trace     *metrics.TraceConfig
}

type APIConfig struct {
	ListenAddress string
}

// PairingConfig describes the pairing relay: the ledger network the session
// targets and the request stream tunables.
type PairingConfig struct {
	Network          string
	ProjectID        string
	SupportedMethods []string
	SupportedEvents  []string
	Chains           []string

	RequestQueueSize int
	RequestTimeout   time.Duration
	ClearInterval    time.Duration
}

func (c *PairingConfig) RequestConfig() *types.RequestConfig {
	return &types.RequestConfig{
		RequestQueueSize: c.RequestQueueSize,
		RequestTimeout:   c.RequestTimeout,
		ClearInterval:    c.ClearInterval,
	}
}

type SessionConfig struct {
	// StorePath is where the session record is persisted. Empty selects the
	// default location under the home directory.
	StorePath string
}

type LifecycleConfig struct {
	AutoRenewPeriod time.Duration
	MintMetadata    string
	CallTimeout     time.Duration
}

func (c *LifecycleConfig) PipelineConfig() *lifecycle.Config {
	return &lifecycle.Config{
		AutoRenewPeriod: c.AutoRenewPeriod,
		MintMetadata:    c.MintMetadata,
		CallTimeout:     c.CallTimeout,
	}
}

func DefaultConfig() *Config {
	reqCfg := types.DefaultRequestConfig()
	pipelineCfg := lifecycle.DefaultConfig()
	cfg := &Config{
		API: &APIConfig{ListenAddress: "/ip4/127.0.0.1/tcp/45132"},
		Pairing: &PairingConfig{
			Network:          "testnet",
			ProjectID:        "",
			SupportedMethods: []string{"ledger_signTransaction", "ledger_signAndExecuteTransaction"},
			SupportedEvents:  []string{"accountsChanged"},
			Chains:           []string{"hedera:testnet"},
			RequestQueueSize: reqCfg.RequestQueueSize,
			RequestTimeout:   reqCfg.RequestTimeout,
			ClearInterval:    reqCfg.ClearInterval,
		},
		Session: &SessionConfig{StorePath: ""},
		Lifecycle: &LifecycleConfig{
			AutoRenewPeriod: pipelineCfg.AutoRenewPeriod,
			MintMetadata:    pipelineCfg.MintMetadata,
			CallTimeout:     pipelineCfg.CallTimeout,
		},
		Metrics: metrics.DefaultMetricsConfig(),
		Trace:   metrics.DefaultTraceConfig(),
	}
	namespace := "mintgate"
	cfg.Metrics.Exporter.Prometheus.Namespace = namespace
	cfg.Metrics.Exporter.Graphite.Namespace = namespace
	cfg.Metrics.Exporter.Prometheus.EndPoint = "/ip4/0.0.0.0/tcp/4569"
	cfg.Metrics.Exporter.Graphite.Port = 4569
	cfg.Trace.ServerName = "mintgate"
	cfg.Trace.JaegerEndpoint = ""

	return cfg
}

func ReadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	return cfg, nil
}

// fillDefaults backfills any section a hand-trimmed config file omits. A
// section absent from the TOML is left nil by Unmarshal, so a partial file
// would otherwise hand out nil section pointers.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.API == nil {
		c.API = def.API
	}
	if c.Pairing == nil {
		c.Pairing = def.Pairing
	}
	if c.Session == nil {
		c.Session = def.Session
	}
	if c.Lifecycle == nil {
		c.Lifecycle = def.Lifecycle
	}
	if c.Metrics == nil {
		c.Metrics = def.Metrics
	}
	if c.Trace == nil {
		c.Trace = def.Trace
	}
}

func WriteConfig(filePath string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filePath, data, 0644)
}
