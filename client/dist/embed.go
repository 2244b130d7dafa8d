package clientdist

import _ "embed"

// ClientJS is the browser client. It replays ops frames into the element
// carrying data-ws and forwards the events it is asked to listen for.
//
// It is served by the serve command at "/client.js".
//
//go:embed domsync.js
var ClientJS []byte
