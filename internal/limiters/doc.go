// Package limiters implements the persistent failed-attempt lockout
// guard. Counters are per-account Redis keys with atomic conditional
// updates, never in-process state, so lockout holds across instances.
package limiters
