// Package scene holds the navigation core of an exhibit: nodes with their cancellable close
// protocol, regions that aggregate nodes, and the Navigator that owns the current node and the
// history of previously visited ones.
//
// Every state-machine operation returns a domain.Outcome next to its error. Redundant calls
// (activating an active region, closing a closing node, switching to the current node) report
// domain.OutcomeSkipped; a close interrupted by cancellation reports domain.OutcomeCancelled.
// Neither is an error.
package scene
