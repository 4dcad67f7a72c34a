// Package notify defines how the bot talks to people: the Gateway
// interface implemented by transports, the Payload shape used by
// broadcasts, and DeliveryError for per-recipient failures.
//
// Deliver applies the caption rule shared by every broadcast. Recorder is an
// in-memory Gateway for tests.
package notify
