// Package auth carries the HTTP security middleware (CORS, IP whitelist,
// per-client rate limiting) and identity resolution. Actor ids arrive as an
// opaque, pre-validated X-Username header; verifying that assertion belongs
// to an upstream gateway and is out of scope here.
package auth

import (
	"net/http"
	"strings"
)

// IdentityHeader names the header carrying the caller's actor id.
const IdentityHeader = "X-Username"

// Identity returns the actor id asserted by the request, or "" when absent.
func Identity(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdentityHeader))
}
