package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

const defaultConfigFile = "cloudflare.yaml"

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample cloudflare configuration file",
		Long:  "Scaffold a commented configuration file documenting credentials, defaults and compile options.",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
			}
			return initRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig, stdout io.Writer) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	// The file may hold a token.
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# cloudflare CLI configuration (YAML; .json and .jsonc files work too)
# Precedence: built-in defaults < this file < environment variables < flags.
# Pass it with --config.

# API token sent as "Authorization: Bearer <token>". CLOUDFLARE_API_TOKEN wins.
# token: ""

# Base URL for API calls. Defaults to the command tree's endpoint.
# api_url: https://api.cloudflare.com/client/v4

# Defaults for account_id and zone_id path parameters.
# account_id: ""
# zone_id: ""

# HTTP timeout as a duration or a number of seconds.
timeout: 30s

# Command tree to dispatch from instead of the embedded one.
# tree: ./schemas/command_tree.json

# Log request and response metadata to stderr.
# debug: false

# Defaults for "cloudflare compile".
# compile:
#   input: schemas/openapi.yaml
#   out: schemas/command_tree.json
#   include_tags: [Zone]
#   exclude_tags: []
#   methods: [get, post]
#   paths: ["^/zones"]
#   fetch_timeout: 30s
#   retries: 3
#   retry_backoff: 200ms
#   strict: false
`
