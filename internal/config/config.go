// Package config loads flashtask settings from ~/.flashtask/config.yaml,
// ./.flashtask/config.yaml and FLASHTASK_* environment variables, in that
// order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/flashtask/internal/chain"
	"github.com/idilsaglam/flashtask/internal/contract"
)

const (
	dirName   = ".flashtask"
	fileName  = "config.yaml"
	envPrefix = "FLASHTASK"
)

// Config is the full configuration.
type Config struct {
	Wallet   WalletConfig   `yaml:"wallet" mapstructure:"wallet"`
	Network  chain.Network  `yaml:"network" mapstructure:"network"`
	Contract ContractConfig `yaml:"contract" mapstructure:"contract"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	UI       UIConfig       `yaml:"ui" mapstructure:"ui"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// WalletConfig points at the wallet provider.
type WalletConfig struct {
	// Endpoint is the wallet's JSON-RPC endpoint. Empty means no wallet.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// ContractConfig locates the task contract and the node used to read it.
type ContractConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	// RPCURL overrides the first network RPC URL for reads.
	RPCURL       string        `yaml:"rpc_url" mapstructure:"rpc_url"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// SessionConfig controls where the session lives and how it is restored.
type SessionConfig struct {
	Dir             string `yaml:"dir" mapstructure:"dir"`
	VerifyOnRestore bool   `yaml:"verify_on_restore" mapstructure:"verify_on_restore"`
}

type UIConfig struct {
	Theme string `yaml:"theme" mapstructure:"theme"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// ReadURL is the node used for contract reads.
func (c *Config) ReadURL() string {
	if c.Contract.RPCURL != "" {
		return c.Contract.RPCURL
	}
	if len(c.Network.RPCURLs) > 0 {
		return c.Network.RPCURLs[0]
	}
	return ""
}

// Validate checks the values the rest of the program relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.Network.ChainID == 0 {
		errs = append(errs, errors.New("network.chain_id is required"))
	}
	if !common.IsHexAddress(c.Contract.Address) {
		errs = append(errs, fmt.Errorf("contract.address %q is not an address", c.Contract.Address))
	}
	if c.ReadURL() == "" {
		errs = append(errs, errors.New("no RPC URL for reads (network.rpc_urls or contract.rpc_url)"))
	}
	if c.Contract.PollInterval <= 0 {
		errs = append(errs, errors.New("contract.poll_interval must be positive"))
	}
	return errors.Join(errs...)
}

// DefaultDir is ~/.flashtask, or ./.flashtask when there is no home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// GlobalConfigPath returns ~/.flashtask/config.yaml.
func GlobalConfigPath() string { return filepath.Join(DefaultDir(), fileName) }

// ProjectConfigPath returns ./.flashtask/config.yaml.
func ProjectConfigPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, dirName, fileName)
}

// Load merges defaults, the global file, the project file and the
// environment. explicit, when set, replaces both files.
func Load(explicit string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	paths := []string{GlobalConfigPath(), ProjectConfigPath()}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config %s: %w", explicit, err)
		}
		paths = []string{explicit}
	}
	for _, p := range paths {
		if err := mergeFile(v, p); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("wallet.endpoint", d.Wallet.Endpoint)

	v.SetDefault("network.chain_id", d.Network.ChainID)
	v.SetDefault("network.name", d.Network.Name)
	v.SetDefault("network.short_name", d.Network.ShortName)
	v.SetDefault("network.currency_name", d.Network.CurrencyName)
	v.SetDefault("network.currency_symbol", d.Network.CurrencySymbol)
	v.SetDefault("network.decimals", d.Network.Decimals)
	v.SetDefault("network.rpc_urls", d.Network.RPCURLs)
	v.SetDefault("network.explorer_urls", d.Network.ExplorerURLs)
	v.SetDefault("network.faucets", d.Network.Faucets)

	v.SetDefault("contract.address", d.Contract.Address)
	v.SetDefault("contract.rpc_url", d.Contract.RPCURL)
	v.SetDefault("contract.poll_interval", d.Contract.PollInterval)

	v.SetDefault("session.dir", d.Session.Dir)
	v.SetDefault("session.verify_on_restore", d.Session.VerifyOnRestore)

	v.SetDefault("ui.theme", d.UI.Theme)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// DefaultConfig targets Polygon Amoy and the deployed task contract.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		Wallet: WalletConfig{
			Endpoint: "http://127.0.0.1:1248",
		},
		Network: chain.Amoy(),
		Contract: ContractConfig{
			Address:      contract.DefaultAddress,
			PollInterval: 4 * time.Second,
		},
		Session: SessionConfig{
			Dir:             dir,
			VerifyOnRestore: true,
		},
		UI: UIConfig{
			Theme: "classic",
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "flashtask.log"),
		},
	}
}

// WriteDefault writes the default configuration to path. An existing file
// is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	b, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	header := []byte("# flashtask configuration\n")
	if err := os.WriteFile(path, append(header, b...), 0o600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
