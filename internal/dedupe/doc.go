// Package dedupe remembers recently seen keys so redelivered transport
// events are processed once.
package dedupe
