package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mark3labs/cloudflare-cli/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cloudflare %s\n", version.Version())
			if t, err := a.commandTree(); err == nil {
				fmt.Fprintf(out, "command tree: v%d, %d resources", t.Version, len(t.Resources))
				if t.SourceDigest != "" {
					fmt.Fprintf(out, ", %s", t.SourceDigest)
				}
				fmt.Fprintln(out)
			}
		},
	}
}
