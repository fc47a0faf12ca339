// Package session owns the canonical client state for one AIDE project: the
// transcript, the active specialist, the generated files, the preview
// address, the generation status, and the connection flag.
//
// The Store is both the message router and the state. It implements
// connection.Handler, so inbound records flow from the connection manager
// straight into its dispatch table; action methods (SendMessage, NewProject,
// GenerateCode, CheckStatus, and the auxiliary preview and debug requests)
// issue the matching outbound commands. There are no shadow copies anywhere:
// consumers read point-in-time Snapshots and wait on the coalescing Changed
// channel to learn when to re-read.
//
// # Failure policy
//
// Nothing escapes the store as a fault. Send failures become error-flagged
// system messages in the transcript, malformed or unknown inbound records are
// logged and dropped, and a generation run that the service never finishes is
// forced to Failed by the guard timer. The one connection condition surfaced
// to the transcript is running out of automatic reconnect attempts.
//
// # Optimistic reconciliation
//
// User input is appended to the transcript before the service confirms
// anything. Locally originated and service-originated entries are disjoint by
// role, so no deduplication is needed. Sending a message with no live project
// implicitly creates one: the text queues until project_created arrives, then
// flushes in order.
//
// # Concurrency
//
// All mutation happens under one mutex: the connection manager's read loop
// enters through the Handler methods, timers re-enter through their
// callbacks, and consumers call actions from their own goroutines. Snapshots
// copy everything they expose.
package session
