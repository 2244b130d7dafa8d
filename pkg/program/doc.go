// Package program composes a render engine instance for one mount.
//
// A Program owns the Patcher, Dispatcher and Scheduler of a container and
// runs the render cycle:
//
//	render → vdom.Diff → Patcher.Apply → host flush
//
// Each cycle is traced as a "domsync.render" span and recorded into
// Prometheus collectors when WithMetrics is given. There is no package
// state: any number of Programs may live in one process.
//
//	p := program.New(doc, doc.Body(), program.AppFunc(view),
//	    program.WithFrameSource(frames))
//	if err := p.Start(); err != nil {
//	    return err
//	}
//	defer p.Close()
package program
