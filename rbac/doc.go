// Package rbac resolves tenant-scoped roles and per-account overrides
// into an effective permission set with a stable digest.
package rbac
