package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/cloudflare-cli/internal/artifact"
	"github.com/mark3labs/cloudflare-cli/internal/compiler"
	"github.com/mark3labs/cloudflare-cli/internal/spec"
)

// CompileConfig captures all inputs that influence the compile command after
// merging defaults, the config file's compile section, and CLI overrides.
type CompileConfig struct {
	Input       string
	Out         string
	IncludeTags []string
	ExcludeTags []string
	// Methods and Paths narrow the compiled operations. Paths are regular
	// expressions matched against the path template.
	Methods    []string
	Paths      []string
	ConfigPath string
	Check      bool
	Strict     bool

	// Fetch settings apply when Input is a URL.
	FetchTimeout time.Duration
	Retries      int
	RetryBackoff time.Duration
}

const (
	defaultCompileInput = "schemas/openapi.yaml"
	defaultCompileOut   = "schemas/command_tree.json"
)

func defaultCompileConfig() CompileConfig {
	fetch := spec.DefaultSettings()
	return CompileConfig{
		Input:        defaultCompileInput,
		Out:          defaultCompileOut,
		FetchTimeout: fetch.HTTPTimeout,
		Retries:      fetch.MaxRetries,
		RetryBackoff: fetch.BackoffBase,
	}
}

var compileRunner = runCompile

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile an OpenAPI document into a command tree",
		Long: "Compile an OpenAPI/Swagger document into the command tree the CLI dispatches from. " +
			"Options can be provided via flags, the config file's compile section, or defaults.",
		Example: strings.TrimSpace(`  cloudflare compile --input schemas/openapi.yaml --out schemas/command_tree.json
  cloudflare compile --input https://example.com/openapi.json --out tree.json.zst
  cloudflare compile --methods get --paths '^/zones' --out zones.json
  cloudflare compile --check`),
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveCompileConfig(cmd)
			if err != nil {
				return err
			}
			return compileRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the OpenAPI/Swagger document (default "+defaultCompileInput+")")
	flags.String("out", "", "Where to write the command tree; .zst compresses it (default "+defaultCompileOut+")")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include operations with these HTTP methods")
	flags.StringArray("paths", nil, "Only include operations whose path matches this regular expression (repeatable)")
	flags.Duration("fetch-timeout", 0, "Per-request timeout when --input is a URL (default 30s)")
	flags.Int("retries", 0, "Retries for transient failures when --input is a URL (default 3)")
	flags.Duration("retry-backoff", 0, "Initial delay between retries, doubled after each one (default 200ms)")
	flags.Bool("check", false, "Fail if the tree at --out differs from a fresh compile instead of writing it")
	flags.Bool("strict", false, "Validate the document against the OpenAPI schema before compiling")

	return cmd
}

func resolveCompileConfig(cmd *cobra.Command) (*CompileConfig, error) {
	cfg := defaultCompileConfig()

	configPath := flagString(cmd.Flags(), "config")
	if configPath != "" {
		cfg.ConfigPath = configPath
		raw, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		// Runtime keys are not used here but must still be valid.
		var runtime Config
		if err := applyConfigFile(&runtime, raw, configPath); err != nil {
			return nil, err
		}
		if err := applyCompileConfigFromFile(&cfg, raw["compile"], configPath); err != nil {
			return nil, err
		}
	}

	if err := applyCompileFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyCompileFlagOverrides(flags *pflag.FlagSet, cfg *CompileConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("include-tags") {
		value, err := flags.GetStringSlice("include-tags")
		if err != nil {
			return err
		}
		cfg.IncludeTags = sanitizeTags(value)
	}
	if flags.Changed("exclude-tags") {
		value, err := flags.GetStringSlice("exclude-tags")
		if err != nil {
			return err
		}
		cfg.ExcludeTags = sanitizeTags(value)
	}
	if flags.Changed("methods") {
		value, err := flags.GetStringSlice("methods")
		if err != nil {
			return err
		}
		cfg.Methods = value
	}
	if flags.Changed("paths") {
		value, err := flags.GetStringArray("paths")
		if err != nil {
			return err
		}
		cfg.Paths = value
	}
	if flags.Changed("fetch-timeout") {
		value, err := flags.GetDuration("fetch-timeout")
		if err != nil {
			return err
		}
		cfg.FetchTimeout = value
	}
	if flags.Changed("retries") {
		value, err := flags.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Retries = value
	}
	if flags.Changed("retry-backoff") {
		value, err := flags.GetDuration("retry-backoff")
		if err != nil {
			return err
		}
		cfg.RetryBackoff = value
	}
	if flags.Changed("check") {
		value, err := flags.GetBool("check")
		if err != nil {
			return err
		}
		cfg.Check = value
	}
	if flags.Changed("strict") {
		value, err := flags.GetBool("strict")
		if err != nil {
			return err
		}
		cfg.Strict = value
	}

	return nil
}

func (c *CompileConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToLower(m)
	}
	c.Methods = sanitizeTags(c.Methods)
	c.Paths = sanitizeTags(c.Paths)
}

func (c *CompileConfig) validate() error {
	if c.Input == "" {
		return newUsageError("compile: --input is required (set via flag or config file)")
	}
	if c.Out == "" {
		return newUsageError("compile: --out must not be empty")
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("compile: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}
	for _, m := range c.Methods {
		if _, ok := spec.ParseMethod(m); !ok {
			return newUsageError(fmt.Sprintf("compile: unknown HTTP method %q in --methods", m))
		}
	}
	for _, p := range c.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("compile: invalid --paths pattern %q: %v", p, err))
		}
	}
	if c.FetchTimeout <= 0 {
		return newUsageError("compile: --fetch-timeout must be positive")
	}
	if c.Retries < 0 {
		return newUsageError("compile: --retries must not be negative")
	}
	if c.RetryBackoff <= 0 {
		return newUsageError("compile: --retry-backoff must be positive")
	}

	return nil
}

// loadOptions turns the fetch settings into loader options.
func (c *CompileConfig) loadOptions() []spec.Option {
	return []spec.Option{
		spec.WithStrict(c.Strict),
		spec.WithHTTPTimeout(c.FetchTimeout),
		spec.WithMaxRetries(c.Retries),
		spec.WithBackoffBase(c.RetryBackoff),
	}
}

// buildOptions turns the operation filters into model builder options.
func (c *CompileConfig) buildOptions() []spec.BuildOption {
	opts := []spec.BuildOption{
		spec.WithIncludeTags(c.IncludeTags),
		spec.WithExcludeTags(c.ExcludeTags),
	}
	if len(c.Methods) > 0 {
		methods := make([]spec.HttpMethod, 0, len(c.Methods))
		for _, m := range c.Methods {
			if hm, ok := spec.ParseMethod(m); ok {
				methods = append(methods, hm)
			}
		}
		opts = append(opts, spec.WithMethods(methods))
	}
	if len(c.Paths) > 0 {
		opts = append(opts, spec.WithPathPatterns(c.Paths))
	}
	return opts
}

func runCompile(ctx context.Context, cfg *CompileConfig, out io.Writer) error {
	doc, err := spec.Load(ctx, cfg.Input, cfg.loadOptions()...)
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			return describeSpecError(se)
		}
		return err
	}

	sm, err := spec.BuildSchemaModel(ctx, doc.T, cfg.buildOptions()...)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	t, err := compiler.Compile(sm)
	if err != nil {
		return err
	}
	t.SourceDigest = artifact.Digest(doc.Raw)

	if cfg.Check {
		if err := artifact.Check(cfg.Out, t); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s is up to date\n", cfg.Out)
		return nil
	}

	if err := artifact.Write(cfg.Out, t); err != nil {
		return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: choose a different --out or check directory permissions.", cfg.Out, err))
	}
	ops := 0
	for _, r := range t.Resources {
		ops += len(r.Operations)
	}
	fmt.Fprintf(out, "Wrote command tree to %s (%d resources, %d operations)\n", cfg.Out, len(t.Resources), ops)
	return nil
}

// specLoadError keeps the loader's error code reachable through errors.As
// while presenting location details in the message.
type specLoadError struct {
	msg string
	err *spec.SpecError
}

func (e *specLoadError) Error() string { return e.msg }

func (e *specLoadError) Unwrap() error { return e.err }

func describeSpecError(se *spec.SpecError) error {
	msg := fmt.Sprintf("spec: %s", se.Message)
	if se.Location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
	}
	if se.JSONPointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
	}
	return &specLoadError{msg: msg, err: se}
}

func applyCompileConfigFromFile(cfg *CompileConfig, section any, path string) error {
	if section == nil {
		return nil
	}
	raw, ok := section.(map[string]any)
	if !ok {
		return newUsageError(fmt.Sprintf("config file %q: compile must be a mapping, got %T", path, section))
	}

	for key, value := range raw {
		var err error
		switch normalizeKey(key) {
		case "input":
			cfg.Input, err = valueAsString(value)
		case "out":
			cfg.Out, err = valueAsString(value)
		case "includetags":
			var list []string
			list, err = valueAsStringSlice(value)
			cfg.IncludeTags = sanitizeTags(list)
		case "excludetags":
			var list []string
			list, err = valueAsStringSlice(value)
			cfg.ExcludeTags = sanitizeTags(list)
		case "methods":
			cfg.Methods, err = valueAsStringSlice(value)
		case "paths":
			cfg.Paths, err = valueAsStringSlice(value)
		case "fetchtimeout":
			cfg.FetchTimeout, err = valueAsDuration(value)
		case "retries":
			cfg.Retries, err = valueAsInt(value)
		case "retrybackoff":
			cfg.RetryBackoff, err = valueAsDuration(value)
		case "check":
			cfg.Check, err = valueAsBool(value)
		case "strict":
			cfg.Strict, err = valueAsBool(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown compile field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", "compile."+key, err))
		}
	}

	return nil
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}
