package remote

import "github.com/vango-dev/domsync/pkg/host"

type hostEvent = host.Event

func hostClick() host.Event {
	return host.Event{Type: "click"}
}
