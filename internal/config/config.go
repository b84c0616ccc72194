package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	ini "gopkg.in/ini.v1"

	"github.com/die-net/rotor/internal/upstream"
)

// Config is the full set of runtime settings. Fields carry ini tags for the
// [server] and [log] sections of the config file.
type Config struct {
	Server Server `ini:"server"`
	Log    Log    `ini:"log"`
}

// Server configures the listener, the upstream list and outbound dialing.
type Server struct {
	Bind               string        `ini:"bind"`
	ProxyList          string        `ini:"proxy_list"`
	Policy             string        `ini:"policy"`
	Watch              bool          `ini:"watch"`
	DialTimeout        time.Duration `ini:"dial_timeout"`
	NegotiationTimeout time.Duration `ini:"negotiation_timeout"`
	TCPKeepAlive       string        `ini:"tcp_keepalive"`
	DebugListen        string        `ini:"debug_listen"`
}

// Log configures log verbosity and output.
type Log struct {
	Verbose int    `ini:"verbose"`
	Quiet   bool   `ini:"quiet"`
	File    string `ini:"file"`
	JSON    bool   `ini:"json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: Server{
			Policy:             upstream.PolicyFirst,
			DialTimeout:        10 * time.Second,
			NegotiationTimeout: 10 * time.Second,
			TCPKeepAlive:       "45:45:3",
		},
	}
}

// LoadFile overlays the settings in the INI file at path onto cfg. Keys
// missing from the file leave cfg unchanged.
func LoadFile(cfg *Config, path string) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if err := f.MapTo(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays BIND, PROXY_LIST, POLICY, VERBOSE and QUIET from the
// environment onto cfg. Unset or empty variables are ignored.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	overrideFromEnv(&cfg.Server.Bind, getenv("BIND"))
	overrideFromEnv(&cfg.Server.ProxyList, getenv("PROXY_LIST"))
	overrideFromEnv(&cfg.Server.Policy, getenv("POLICY"))

	if v := strings.TrimSpace(getenv("VERBOSE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("VERBOSE: %w", err)
		}
		cfg.Log.Verbose = n
	}
	if v := strings.TrimSpace(getenv("QUIET")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QUIET: %w", err)
		}
		cfg.Log.Quiet = b
	}
	return nil
}

func overrideFromEnv(target *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*target = v
	}
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Bind == "" {
		errs = append(errs, errors.New("bind address is required"))
	}
	if c.Server.ProxyList == "" {
		errs = append(errs, errors.New("proxy list path is required"))
	}
	if _, err := upstream.NewSelector(c.Server.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Server.DialTimeout <= 0 {
		errs = append(errs, errors.New("dial timeout must be > 0"))
	}
	if c.Server.NegotiationTimeout <= 0 {
		errs = append(errs, errors.New("negotiation timeout must be > 0"))
	}
	if _, err := ParseTCPKeepAlive(c.Server.TCPKeepAlive); err != nil {
		errs = append(errs, fmt.Errorf("tcp keepalive: %w", err))
	}
	if c.Log.Verbose < 0 {
		errs = append(errs, errors.New("verbose must be >= 0"))
	}
	return errors.Join(errs...)
}
