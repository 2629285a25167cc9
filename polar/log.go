package polar

import "net/http"

// requestAttrs returns the request attributes attached to every log line.
// Codes, verifiers and tokens are never logged.
func requestAttrs(r *http.Request) []any {
	return []any{
		"strategy", StrategyName,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	}
}
