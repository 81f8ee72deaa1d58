package testutil

import "github.com/vk/taskgrid/internal/event"

// Collect drains an event stream into a slice, returning once the producer
// closes the channel.
func Collect(ch <-chan event.Event) []event.Event {
	var out []event.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

// NodeIDs returns, in order, the node id of every event of the given type.
func NodeIDs(events []event.Event, t event.Type) []string {
	var out []string
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev.NodeID)
		}
	}
	return out
}

// CountType returns how many events of the given type were seen.
func CountType(events []event.Event, t event.Type) int {
	n := 0
	for _, ev := range events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// IndexOf returns the position of the first event matching type and node id,
// or -1.
func IndexOf(events []event.Event, t event.Type, nodeID string) int {
	for i, ev := range events {
		if ev.Type == t && ev.NodeID == nodeID {
			return i
		}
	}
	return -1
}
