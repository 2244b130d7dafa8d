package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vango-dev/domsync/pkg/host/memdoc"
	"github.com/vango-dev/domsync/pkg/vdom"
)

func treeCmd() *cobra.Command {
	var (
		asHTML bool
		count  bool
	)

	cmd := &cobra.Command{
		Use:   "tree <tree.json>",
		Short: "Print a tree",
		Long: `Print a JSON tree as an indented outline, or as the markup a mounted
copy of it would serialize to.`,
		Example: `  domsync tree page.json
  domsync tree --html page.json
  cat page.json | domsync tree -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := readTree(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asHTML {
				fmt.Fprintln(out, memdoc.Markup(tree))
			} else {
				fmt.Fprint(out, vdom.Dump(tree))
			}
			if count {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n%d nodes, %d mounted\n",
					vdom.NodeCount(tree), mountedCount(tree))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asHTML, "html", false, "Print the mounted markup instead of the outline")
	cmd.Flags().BoolVarP(&count, "count", "c", false, "Print node counts")

	return cmd
}

// mountedCount counts the nodes a mount creates, fragments excluded.
func mountedCount(tree *vdom.VNode) int {
	return countMounted(vdom.Roots(tree))
}

func countMounted(nodes []*vdom.VNode) int {
	n := len(nodes)
	for _, v := range nodes {
		if v.Kind == vdom.KindElement {
			n += countMounted(vdom.Flatten(v.Children))
		}
	}
	return n
}
