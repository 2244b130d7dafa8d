package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vango-dev/domsync/internal/config"
	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/host"
	"github.com/vango-dev/domsync/pkg/host/memdoc"
	"github.com/vango-dev/domsync/pkg/program"
	"github.com/vango-dev/domsync/pkg/protocol"
	"github.com/vango-dev/domsync/pkg/remote"
	"github.com/vango-dev/domsync/pkg/vdom"
)

func checkCmd() *cobra.Command {
	var (
		viaRemote bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "check <tree.json>...",
		Short: "Render a sequence of trees and verify the live result",
		Long: `Render each tree in turn into an in-memory document, patching from the
previous one, and verify after every step that the live document
serializes to the same markup as the tree.

With --remote the patches go through the remote document: host ops are
encoded into ops frames, decoded again and replayed on the client side.`,
		Example: `  domsync check step1.json step2.json step3.json
  domsync check --remote step1.json step2.json null`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if verbose {
				cfg := config.New()
				cfg.Log.Level = "debug"
				logger = cfg.Logger(cmd.ErrOrStderr())
			}

			trees := make([]*vdom.VNode, len(args))
			for i, path := range args {
				tree, err := readTree(path, cmd.InOrStdin())
				if err != nil {
					return err
				}
				trees[i] = tree
			}

			var t *checkTarget
			if viaRemote {
				t = remoteTarget(logger)
			} else {
				t = localTarget()
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), t, args, trees, logger)
		},
	}

	cmd.Flags().BoolVar(&viaRemote, "remote", false, "Patch through the remote document and the wire encoding")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every cycle")

	return cmd
}

// checkTarget is a document to render into and a way to read it back.
type checkTarget struct {
	doc       host.Document
	container host.Node
	markup    func() string
	err       func() error
}

func localTarget() *checkTarget {
	md := memdoc.New()
	return &checkTarget{
		doc:       md,
		container: md.Body(),
		markup:    func() string { return memdoc.HTML(md.Body()) },
		err:       func() error { return nil },
	}
}

// remoteTarget wires a remote.Document to a Replayer over encoded frames.
func remoteTarget(logger *slog.Logger) *checkTarget {
	md := memdoc.New()
	replayer := remote.NewReplayer(md, md.Body(), nil)
	replayer.MapHead(md.Head())
	var replayErr error
	send := func(f *protocol.Frame) error {
		back, err := protocol.DecodeFrame(f.Encode())
		if err != nil {
			return err
		}
		if back.Type != protocol.FrameOps {
			return nil
		}
		if err := replayer.ApplyFrame(back.Payload); err != nil {
			replayErr = err
			return err
		}
		return nil
	}
	doc := remote.NewDocument(send, logger)
	return &checkTarget{
		doc:       doc,
		container: doc.Container(),
		markup:    func() string { return memdoc.HTML(md.Body()) },
		err:       func() error { return replayErr },
	}
}

func runCheck(ctx context.Context, out io.Writer, t *checkTarget, names []string, trees []*vdom.VNode, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	prog := program.New(t.doc, t.container, nil, program.WithLogger(logger))
	defer prog.Close()
	if err := prog.Start(); err != nil {
		return err
	}

	before := prog.Stats().Patches
	for i, tree := range trees {
		prog.Update(tree)
		if err := prog.RenderNow(ctx); err != nil {
			if rerr := t.err(); rerr != nil {
				err = rerr
			}
			return errors.New("E041").WithDetailf("step %d (%s)", i+1, names[i]).Wrap(err)
		}
		after := prog.Stats().Patches
		want, got := memdoc.Markup(tree), t.markup()
		if want != got {
			errorMsg(out, "step %d (%s)", i+1, names[i])
			info(out, "want: %s", want)
			info(out, "got:  %s", got)
			return errors.New("E041").WithDetailf("step %d (%s): live markup differs", i+1, names[i])
		}
		success(out, "step %d (%s): %d patches, %d nodes", i+1, names[i], after-before, prog.Nodes().Len())
		before = after
	}
	return nil
}
