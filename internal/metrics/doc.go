// Package metrics provides lock-free counters and latency histograms for
// authgate observability.
//
// Counters live in cache-line-padded uint64 slots and are incremented
// atomically. Histograms use 8 fixed buckets (≤5ms … +Inf). Export
// (Prometheus, OTel) lives in metrics/export/ and reads Snapshot values;
// this package performs no I/O.
package metrics
