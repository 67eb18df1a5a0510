package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mark3labs/cloudflare-cli/internal/artifact"
	"github.com/mark3labs/cloudflare-cli/internal/discovery"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
	"github.com/mark3labs/cloudflare-cli/schemas"
)

const (
	groupCommands  = "commands"
	groupResources = "resources"
)

// app is the state shared by the commands of one invocation.
type app struct {
	args      []string
	tree      *tree.CommandTree
	treeErr   error
	getenv    func(string) string
	stdin     io.Reader
	transport http.RoundTripper
}

// Option customizes NewRootCmd.
type Option func(*app)

// WithArgs lets the root command find --config and --tree before cobra
// parses anything, so the command tree can be chosen up front.
func WithArgs(args []string) Option { return func(a *app) { a.args = args } }

// WithTree uses t instead of loading a command tree.
func WithTree(t *tree.CommandTree) Option { return func(a *app) { a.tree = t } }

// WithEnv replaces os.Getenv.
func WithEnv(getenv func(string) string) Option { return func(a *app) { a.getenv = getenv } }

// WithStdin backs --body-file -.
func WithStdin(r io.Reader) Option { return func(a *app) { a.stdin = r } }

// WithTransport sets the HTTP transport used for API calls.
func WithTransport(rt http.RoundTripper) Option { return func(a *app) { a.transport = rt } }

// Execute runs the cloudflare CLI with args (without the program name).
func Execute(ctx context.Context, args []string) error {
	root := NewRootCmd(WithArgs(args))
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{getenv: os.Getenv}
	for _, opt := range opts {
		opt(a)
	}
	if a.tree == nil {
		a.tree, a.treeErr = a.loadTree()
	}

	cmd := &cobra.Command{
		Use:   "cloudflare",
		Short: "Call the Cloudflare API through commands compiled from its OpenAPI document",
		Long: "cloudflare exposes every Cloudflare API operation as `cloudflare <resource> <operation>`.\n" +
			"Commands come from a command tree compiled from the OpenAPI document; use list, describe and tree to explore it.",
		SilenceErrors:      true,
		SilenceUsage:       true,
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			t, err := a.commandTree()
			if err != nil {
				return err
			}
			_, err = discovery.FindResource(t, args[0])
			return err
		},
	}

	cmd.SetFlagErrorFunc(flagUsageError)
	cmd.PersistentFlags().AddFlagSet(newGlobalFlags())
	cmd.AddGroup(
		&cobra.Group{ID: groupCommands, Title: "Commands:"},
		&cobra.Group{ID: groupResources, Title: "API resources:"},
	)

	builtins := []*cobra.Command{
		a.newListCmd(),
		a.newDescribeCmd(),
		a.newTreeCmd(),
		a.newAPICmd(),
		newCompileCmd(),
		newInitCmd(),
		newVersionCmd(a),
	}
	reserved := map[string]bool{"help": true, "completion": true}
	for _, b := range builtins {
		b.GroupID = groupCommands
		b.SetFlagErrorFunc(flagUsageError)
		reserved[b.Name()] = true
		cmd.AddCommand(b)
	}

	if a.tree != nil {
		for i := range a.tree.Resources {
			res := &a.tree.Resources[i]
			// Built-in commands shadow resources of the same name; describe
			// still reaches them.
			if reserved[res.Name] {
				continue
			}
			rc := a.newResourceCmd(res)
			rc.GroupID = groupResources
			cmd.AddCommand(rc)
		}
	}

	return cmd
}

// Convert Cobra flag errors (like unknown flags) into friendly usage errors
// that also show the command's help text.
func flagUsageError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

// usageArgs turns positional argument validation failures into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return newUsageError(fmt.Sprintf("%v\n\n%s", err, cmd.UsageString()))
		}
		return nil
	}
}

// loadTree picks the command tree: --tree, then CLOUDFLARE_COMMAND_TREE, then
// the config file, then the tree embedded in the binary.
func (a *app) loadTree() (*tree.CommandTree, error) {
	cfg, err := resolveConfig(prescanGlobals(a.args), a.getenv)
	if err != nil {
		return nil, err
	}
	if cfg.TreePath == "" {
		return tree.Unmarshal(schemas.CommandTree)
	}
	t, err := artifact.Load(cfg.TreePath)
	if err != nil {
		return nil, fmt.Errorf("load command tree: %w", err)
	}
	return t, nil
}

func (a *app) commandTree() (*tree.CommandTree, error) {
	if a.treeErr != nil {
		return nil, a.treeErr
	}
	return a.tree, nil
}

func (a *app) renderer(w io.Writer) *discovery.Renderer {
	return discovery.NewRenderer(w, colorEnabled(w, a.getenv))
}

// baseURL is CLOUDFLARE_API_URL or api_url when set, else the tree's
// endpoint.
func (a *app) baseURL(cfg *Config) string {
	if cfg.APIURL != "" {
		return cfg.APIURL
	}
	if a.tree != nil && a.tree.Endpoint != "" {
		return a.tree.Endpoint
	}
	return tree.DefaultEndpoint
}
