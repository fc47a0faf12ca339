// Package connection manages the client's WebSocket link to the AIDE
// generation service.
//
// A Manager owns one connection at a time and drives its whole lifecycle:
// dialing, a JSON ping/pong keepalive probe while the link is open, and
// linear-backoff reconnection after unexpected closes (base delay times the
// attempt number, bounded by an attempt budget that resets on every
// successful open). Inbound frames are decoded into protocol envelopes and
// delivered in order to a single Handler; the keepalive acknowledgment is
// filtered out before dispatch.
//
// Managers are constructed values, not package state; callers and tests own
// their instances.
package connection
