package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/vango-dev/domsync/pkg/protocol"
	"github.com/vango-dev/domsync/pkg/vdom"
)

func diffCmd() *cobra.Command {
	var (
		format  string
		summary bool
	)

	cmd := &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "Print the patches turning one tree into another",
		Long: `Compute the patch sequence that turns the old tree into the new one.

Either file may be "-" to read from stdin. A file holding the literal null
stands for the empty tree, so diffing null against a tree shows its mount.

Formats:
  text     one patch per line (default)
  binary   a single patches frame in the wire encoding`,
		Example: `  domsync diff before.json after.json
  domsync diff null after.json
  domsync diff --format binary before.json after.json > patches.bin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" && args[1] == "-" {
				return fmt.Errorf("only one tree can be read from stdin")
			}
			prev, err := readTree(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			next, err := readTree(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			patches := vdom.Diff(prev, next)

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				for _, p := range patches {
					fmt.Fprintln(out, p)
				}
				if summary {
					printSummary(cmd, patches)
				}
				return nil
			case "binary":
				frame := protocol.NewFrame(protocol.FramePatches,
					protocol.EncodePatches(&protocol.PatchesFrame{Seq: 1, Patches: patches}))
				return protocol.WriteFrame(out, frame)
			default:
				return fmt.Errorf("unknown format %q (want text or binary)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or binary")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print patch counts by kind after the patches")

	return cmd
}

func printSummary(cmd *cobra.Command, patches []vdom.Patch) {
	counts := make(map[string]int)
	for _, p := range patches {
		counts[p.Op.String()]++
	}
	ops := make([]string, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	w := cmd.ErrOrStderr()
	fmt.Fprintln(w)
	for _, op := range ops {
		info(w, "%-16s %d", op, counts[op])
	}
	info(w, "%-16s %d", "total", len(patches))
}
