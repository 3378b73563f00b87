// Package session stores browser sessions in Redis as compact binary
// blobs with a per-account index set and a tenant-wide counter. Expiry
// is a sliding idle window bounded by an absolute lifetime measured
// from creation.
package session
