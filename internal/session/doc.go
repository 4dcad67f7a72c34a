// Package session holds per-identity conversation state in memory and
// provides the per-identity locks that keep one identity's turns ordered.
// Sessions do not survive a restart.
package session
