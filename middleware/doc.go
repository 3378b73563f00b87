// Package middleware exposes HTTP adapters for session-cookie and
// bearer-token authentication plus permission enforcement.
//
// This package translates HTTP semantics into Engine calls. It does not
// implement authentication logic itself: guards read the credential
// from the request, delegate to the Engine, and inject the validated
// identity into the request context. Error responses never distinguish
// missing from revoked credentials.
package middleware
