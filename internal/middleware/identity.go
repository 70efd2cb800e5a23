package middleware

import "net/http"

// UserIDHeader carries the authenticated user id, set by the upstream
// auth proxy. An absent header means an anonymous request.
const UserIDHeader = "X-User-ID"

// UserID returns the authenticated user id for the request, or "" when the
// request is anonymous.
func UserID(r *http.Request) string {
	return r.Header.Get(UserIDHeader)
}
