// Package remote renders into a document that lives in another process.
//
// A Document records the host mutations of a render cycle as protocol
// ops and sends them as one frame when the program flushes. Events travel
// the other way: the client forwards the native events it was asked to
// listen for and the Document bubbles them to the delegated listeners.
//
// A Server upgrades HTTP requests to websocket Sessions. Each session owns
// a sched.Loop; the program, its document and every event handler run on
// it, so application code needs no locking:
//
//	srv := remote.NewServer(func(s *remote.Session) program.Application {
//	    return newCounter(s)
//	})
//	r.Handle("/ws", srv)
//
// Replayer is the client half. It applies ops frames to any
// host.Document and turns events fired there into event messages.
package remote
