// Package texts is the catalog of user-facing strings (Russian by default),
// embedded from texts.yaml and optionally overridden per deployment.
package texts
