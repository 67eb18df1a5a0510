package cli

import (
	"github.com/spf13/cobra"

	"github.com/mark3labs/cloudflare-cli/internal/discovery"
)

func (a *app) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API resources",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			withOps, _ := cmd.Flags().GetBool("ops")
			out := cmd.OutOrStdout()

			t, err := a.commandTree()
			if err != nil {
				return a.discoveryError(cmd, asJSON, err)
			}
			if !asJSON {
				return a.renderer(out).List(t, withOps)
			}
			if withOps {
				return discovery.WriteJSON(out, discovery.ListWithOps(t))
			}
			return discovery.WriteJSON(out, discovery.List(t))
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	cmd.Flags().Bool("ops", false, "Include each resource's operations")
	return cmd
}

func (a *app) newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <resource> [operation]",
		Short: "Show a resource's operations or an operation's parameters",
		Args:  usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			t, err := a.commandTree()
			if err != nil {
				return a.discoveryError(cmd, asJSON, err)
			}
			if len(args) == 1 {
				res, err := discovery.FindResource(t, args[0])
				if err != nil {
					return a.discoveryError(cmd, asJSON, err)
				}
				if asJSON {
					return discovery.WriteJSON(out, discovery.Summarize(res))
				}
				return a.renderer(out).Resource(res)
			}

			op, err := discovery.Describe(t, args[0], args[1])
			if err != nil {
				return a.discoveryError(cmd, asJSON, err)
			}
			if asJSON {
				return discovery.WriteJSON(out, op)
			}
			return a.renderer(out).Describe(args[0], op)
		},
	}
	cmd.Flags().Bool("json", false, "Print JSON")
	return cmd
}

func (a *app) newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the whole command tree",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			t, err := a.commandTree()
			if err != nil {
				return a.discoveryError(cmd, asJSON, err)
			}
			if !asJSON {
				return a.renderer(out).Tree(t)
			}
			data, err := discovery.Tree(t)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().Bool("json", false, "Print the canonical JSON tree")
	return cmd
}

// discoveryError reports err as a structured object on stdout when --json is
// set; the process still exits with err's code.
func (a *app) discoveryError(cmd *cobra.Command, asJSON bool, err error) error {
	if !asJSON {
		return err
	}
	if werr := discovery.WriteJSONError(cmd.OutOrStdout(), jsonCategory(err), err); werr != nil {
		return werr
	}
	return &ExitError{Code: ExitCodeFor(err)}
}
