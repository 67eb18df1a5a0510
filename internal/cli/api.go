package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/cloudflare-cli/internal/dispatch"
)

func (a *app) newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api <METHOD> <path>",
		Short: "Send a request to any API path",
		Long: "Send a request to an arbitrary API path relative to the base URL, " +
			"for endpoints missing from the command tree.",
		Example: strings.TrimSpace(`  cloudflare api GET /zones --query name=example.com
  cloudflare api POST /zones/$ZONE/purge_cache --body '{"purge_everything":true}'`),
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), a.getenv)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			query, _ := flags.GetStringArray("query")
			headers, _ := flags.GetStringArray("header")
			body, _ := flags.GetString("body")
			bodyFile, _ := flags.GetString("body-file")
			raw, _ := flags.GetBool("raw")
			pretty, _ := flags.GetBool("pretty")

			binder := &dispatch.Binder{Stdin: a.stdin}
			data, err := binder.LoadBody(flags.Changed("body"), body, bodyFile)
			if err != nil {
				return err
			}
			if err := requireCredentials(cfg, headers); err != nil {
				return err
			}

			req, err := dispatch.BuildRaw(args[0], args[1], query, data, dispatch.Overrides{
				BaseURL: a.baseURL(cfg),
				Token:   cfg.Token,
				Headers: headers,
			})
			if err != nil {
				return err
			}
			return a.send(cmd, cfg, req, raw, pretty)
		},
	}

	flags := cmd.Flags()
	flags.StringArray("query", nil, "Query parameter as KEY=VALUE (repeatable)")
	flags.String("body", "", "JSON request body")
	flags.String("body-file", "", "Read the JSON request body from a file (- for stdin)")
	flags.StringArray("header", nil, "Extra request header as key:value (repeatable)")
	flags.Bool("raw", false, "Print the full response envelope")
	flags.Bool("pretty", false, "Indent JSON output")

	return cmd
}
