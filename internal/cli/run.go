package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/cloudflare-cli/internal/discovery"
	"github.com/mark3labs/cloudflare-cli/internal/dispatch"
	"github.com/mark3labs/cloudflare-cli/internal/httpx"
	"github.com/mark3labs/cloudflare-cli/internal/output"
	"github.com/mark3labs/cloudflare-cli/internal/tree"
	"github.com/mark3labs/cloudflare-cli/internal/version"
)

func (a *app) newResourceCmd(res *tree.Resource) *cobra.Command {
	cmd := &cobra.Command{
		Use:                res.Name + " <operation>",
		Short:              res.DisplayName,
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			_, err := discovery.Describe(a.tree, res.Name, args[0])
			return err
		},
	}
	for i := range res.Operations {
		cmd.AddCommand(a.newOperationCmd(res, &res.Operations[i]))
	}
	return cmd
}

// newOperationCmd leaves flag parsing to the binder, which knows the
// operation's parameters.
func (a *app) newOperationCmd(res *tree.Resource, op *tree.Operation) *cobra.Command {
	short := op.Summary
	if short == "" {
		short = op.DisplayName
	}
	cmd := &cobra.Command{
		Use:                op.Name,
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOperation(cmd, res, op, args)
		},
	}
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		_ = a.renderer(c.OutOrStdout()).Describe(res.Name, op)
	})
	return cmd
}

func (a *app) runOperation(cmd *cobra.Command, res *tree.Resource, op *tree.Operation, args []string) error {
	cfg, err := resolveConfig(prescanGlobals(args), a.getenv)
	if err != nil {
		return err
	}

	binder := &dispatch.Binder{
		Defaults: dispatch.IdentifierDefaults(cfg.AccountID, cfg.ZoneID),
		Globals:  newGlobalFlags(),
		Stdin:    a.stdin,
	}
	bound, err := binder.Bind(op, args)
	if errors.Is(err, pflag.ErrHelp) {
		return a.renderer(cmd.OutOrStdout()).Describe(res.Name, op)
	}
	if err != nil {
		return withContract(err, res.Name, op)
	}
	if err := requireCredentials(cfg, bound.Headers); err != nil {
		return err
	}

	req, err := dispatch.Build(op, bound, dispatch.Overrides{BaseURL: a.baseURL(cfg), Token: cfg.Token})
	if err != nil {
		return withContract(err, res.Name, op)
	}
	return a.send(cmd, cfg, req, bound.Raw, bound.Pretty)
}

// send executes req and prints the response body. Error responses are printed
// with their full envelope before the error is returned.
func (a *app) send(cmd *cobra.Command, cfg *Config, req *dispatch.BoundRequest, raw, pretty bool) error {
	logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)
	client := httpx.NewClient(httpx.ClientOptions{
		Timeout:   cfg.Timeout,
		UserAgent: version.UserAgent(),
		Logger:    logger,
		Transport: a.transport,
	})

	resp, err := client.Execute(cmd.Context(), req)
	if resp == nil {
		return err
	}
	printer := &output.Printer{Out: cmd.OutOrStdout(), Raw: raw || !resp.OK(), Pretty: pretty}
	if perr := printer.Print(resp.Body); perr != nil {
		var fe *output.FormatError
		if !errors.As(perr, &fe) {
			if err == nil {
				err = perr
			}
		} else {
			logger.Warn("response is not JSON", "status", resp.Status, "content_type", resp.Headers.Get("Content-Type"))
		}
	}
	return err
}

// requireCredentials fails early when no API token is configured and the
// caller did not supply an authentication header.
func requireCredentials(cfg *Config, headers []string) error {
	if cfg.Token != "" {
		return nil
	}
	for _, h := range headers {
		name := h
		if i := strings.IndexAny(h, ":="); i >= 0 {
			name = h[:i]
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "authorization", "x-auth-key":
			return nil
		}
	}
	return newUsageError("no API token: set " + envToken + ", add token to the config file, or pass --header Authorization:...")
}
