// Package refresh implements refresh-token families with single-use
// rotation and reuse detection. A family is a chain of tokens sharing
// one absolute expiry; at most one token per family is active. The
// rotation step runs as one Lua script, so concurrent presentations of
// the same token produce exactly one winner, and presenting a retired
// token revokes the entire family before the caller sees the result.
package refresh
