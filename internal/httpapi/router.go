package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sempr/judgecore/internal/languages"
	"github.com/sempr/judgecore/internal/limiter"
)

// languageRoutes maps each per-language endpoint to the enum it's bound to.
var languageRoutes = map[string]languages.Language{
	"/languages/java":   languages.Java,
	"/languages/python": languages.Python,
	"/languages/c":      languages.C,
	"/languages/cpp":    languages.CPP,
	"/languages/go":     languages.Go,
	"/languages/csharp": languages.CSharp,
}

// NewRouter builds the full HTTP mux: health check, Prometheus metrics,
// the per-language endpoints, and the generic /execute endpoint, all behind
// the per-client rate limiter.
func NewRouter(handler *Handler, rl *limiter.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	for route, lang := range languageRoutes {
		mux.HandleFunc(route, rl.Middleware(handler.ForLanguage(lang)))
	}

	mux.HandleFunc("/execute", rl.Middleware(handler.Generic))

	return mux
}
