// Package broadcast fans a single payload out to many members.
//
// Dispatcher.Broadcast attempts every recipient exactly once with a bounded
// number of concurrent sends. Individual failures are isolated: they are
// logged, counted and listed in the Report, and delivery to the remaining
// recipients continues. Broadcasts are not persisted, so a crash mid-run
// loses the recipients not yet reached.
//
// Audience describes who receives a broadcast; Resolve evaluates it once
// against the store before dispatch.
package broadcast
