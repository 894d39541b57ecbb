package middleware

import (
	"net/http"
	"strings"
)

const (
	formAllowedHeaders = "Accept, Content-Type, X-Requested-With"
	formAllowedMethods = "POST, OPTIONS"
)

// FormCORS lets landing pages hosted on other origins post lead forms with
// fetch/XHR. Only the listed paths are covered and only POST is granted;
// every other request passes through without CORS headers. If
// allowedOrigins contains "*", any Origin is echoed back.
func FormCORS(allowedOrigins []string, paths ...string) func(http.Handler) http.Handler {
	allowAny := false
	allow := map[string]struct{}{}
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAny = true
			continue
		}
		allow[origin] = struct{}{}
	}
	covered := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		covered[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := covered[r.URL.Path]; !ok {
				next.ServeHTTP(w, r)
				return
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			originOK := origin != "" && (allowAny || isAllowedOrigin(allow, origin))
			requested := r.Header.Get("Access-Control-Request-Method")

			if r.Method == http.MethodOptions && origin != "" && requested != "" {
				w.Header().Add("Vary", "Origin")
				if !originOK || !strings.EqualFold(requested, http.MethodPost) {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				setFormCORSHeaders(w, origin)
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if originOK && r.Method == http.MethodPost {
				w.Header().Add("Vary", "Origin")
				setFormCORSHeaders(w, origin)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setFormCORSHeaders(w http.ResponseWriter, origin string) {
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Headers", formAllowedHeaders)
	w.Header().Set("Access-Control-Allow-Methods", formAllowedMethods)
}

func isAllowedOrigin(allow map[string]struct{}, origin string) bool {
	_, ok := allow[origin]
	return ok
}
