// Package audit defines the append-only audit event model, delivery
// sinks, and the asynchronous dispatcher used by the engine. Entries are
// immutable once emitted; sinks must never rewrite or delete them.
package audit
