package middleware

import (
	"net"
	"net/http"
	"strings"
)

// TrustedHosts rejects requests whose Host header is not on the allowlist.
// If allowedHosts contains "*", any host passes. An entry "*.example.com"
// matches any single-label subdomain of example.com.
func TrustedHosts(allowedHosts []string) func(http.Handler) http.Handler {
	allowAny := false
	exact := map[string]struct{}{}
	var suffixes []string
	for _, host := range allowedHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host == "" {
			continue
		}
		if host == "*" {
			allowAny = true
			continue
		}
		if strings.HasPrefix(host, "*.") {
			suffixes = append(suffixes, host[1:])
			continue
		}
		exact[host] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowAny || isAllowedHost(exact, suffixes, r.Host) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "Invalid host header"}`))
		})
	}
}

func isAllowedHost(exact map[string]struct{}, suffixes []string, hostport string) bool {
	host := strings.ToLower(hostport)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if _, ok := exact[host]; ok {
		return true
	}
	for _, suffix := range suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
