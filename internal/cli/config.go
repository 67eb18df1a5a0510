package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/cloudflare-cli/internal/httpx"
)

// Environment variables read at runtime.
const (
	envToken     = "CLOUDFLARE_API_TOKEN"
	envAPIURL    = "CLOUDFLARE_API_URL"
	envAccountID = "CLOUDFLARE_ACCOUNT_ID"
	envZoneID    = "CLOUDFLARE_ZONE_ID"
	envTree      = "CLOUDFLARE_COMMAND_TREE"
)

// Config captures the runtime settings after merging defaults, the config
// file, the environment and global flags, in that order.
type Config struct {
	Token      string
	APIURL     string
	AccountID  string
	ZoneID     string
	Timeout    time.Duration
	TreePath   string
	Debug      bool
	ConfigPath string
}

func defaultConfig() Config {
	return Config{Timeout: httpx.DefaultTimeout}
}

// newGlobalFlags defines the flags every command accepts, including
// operation commands whose arguments the binder parses.
func newGlobalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("global", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "Config file path (YAML, JSON or JSONC)")
	fs.String("tree", "", "Command tree file to use instead of the embedded one")
	fs.Duration("timeout", httpx.DefaultTimeout, "HTTP request timeout")
	fs.Bool("debug", false, "Log request and response metadata to stderr")
	return fs
}

// prescanGlobals extracts the global flags from args and ignores everything
// else.
func prescanGlobals(args []string) *pflag.FlagSet {
	fs := newGlobalFlags()
	fs.BoolP("help", "h", false, "")
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	_ = fs.Parse(args)
	return fs
}

func resolveConfig(flags *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	cfg := defaultConfig()

	configPath := flagString(flags, "config")
	if configPath != "" {
		cfg.ConfigPath = configPath
		raw, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := applyConfigFile(&cfg, raw, configPath); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg, getenv)

	if err := applyConfigFlagOverrides(flags, &cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		return nil, newUsageError(fmt.Sprintf("timeout must be positive, got %s", cfg.Timeout))
	}
	return &cfg, nil
}

func flagString(flags *pflag.FlagSet, name string) string {
	if flags == nil || flags.Lookup(name) == nil {
		return ""
	}
	v, _ := flags.GetString(name)
	return strings.TrimSpace(v)
}

// readConfigFile decodes a YAML config file, or JSON with comments when the
// extension is .json or .jsonc.
func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
		}
	}
	return raw, nil
}

func applyConfigFile(cfg *Config, raw map[string]any, path string) error {
	for key, value := range raw {
		var err error
		switch normalizeKey(key) {
		case "token", "apitoken":
			cfg.Token, err = valueAsString(value)
		case "apiurl":
			cfg.APIURL, err = valueAsString(value)
		case "accountid":
			cfg.AccountID, err = valueAsString(value)
		case "zoneid":
			cfg.ZoneID, err = valueAsString(value)
		case "timeout":
			cfg.Timeout, err = valueAsDuration(value)
		case "tree":
			cfg.TreePath, err = valueAsString(value)
		case "debug":
			cfg.Debug, err = valueAsBool(value)
		case "compile":
			// Read by the compile command.
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	set := func(dst *string, name string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Token, envToken)
	set(&cfg.APIURL, envAPIURL)
	set(&cfg.AccountID, envAccountID)
	set(&cfg.ZoneID, envZoneID)
	set(&cfg.TreePath, envTree)
}

func applyConfigFlagOverrides(flags *pflag.FlagSet, cfg *Config) error {
	if flags == nil {
		return nil
	}
	if flags.Changed("tree") {
		cfg.TreePath = flagString(flags, "tree")
	}
	if flags.Changed("timeout") {
		value, err := flags.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = value
	}
	if flags.Changed("debug") {
		value, err := flags.GetBool("debug")
		if err != nil {
			return err
		}
		cfg.Debug = value
	}
	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

// valueAsDuration accepts a Go duration string or a number of seconds.
func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return time.Duration(secs * float64(time.Second)), nil
	case int:
		return time.Duration(val) * time.Second, nil
	case float64:
		return time.Duration(val * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
