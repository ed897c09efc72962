package middleware

import "net/http"

// ManagerChecker decides who holds the rewarding manager role.
type ManagerChecker interface {
	IsRewardingManager(username string) bool
}

// RequireManager restricts access to rewarding managers.
func RequireManager(roles ManagerChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := UserFromContext(r.Context())
			if u == "" {
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !roles.IsRewardingManager(u) {
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
