package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

const throttleBacklogTimeout = time.Minute

// ingestThrottle caps in-flight webhook calls with chi's throttler. Calls it
// turns away get the same JSON error body as every other endpoint instead of
// chi's plain-text message.
func ingestThrottle(limit int) func(http.Handler) http.Handler {
	throttle := middleware.ThrottleWithOpts(middleware.ThrottleOpts{
		Limit:          limit,
		BacklogTimeout: throttleBacklogTimeout,
	})

	return func(next http.Handler) http.Handler {
		admitted := throttle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := w.(*throttleWriter)
			tw.passed = true
			next.ServeHTTP(tw.ResponseWriter, r)
		}))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tw := &throttleWriter{ResponseWriter: w}
			admitted.ServeHTTP(tw, r)
			if !tw.passed {
				respondError(w, http.StatusTooManyRequests, "Too many concurrent webhook calls, try again later")
			}
		})
	}
}

// throttleWriter swallows the throttler's own rejection so it can be
// rewritten. Once a call is admitted the handler gets the real writer.
type throttleWriter struct {
	http.ResponseWriter
	passed bool
}

func (tw *throttleWriter) WriteHeader(int) {}

func (tw *throttleWriter) Write(b []byte) (int, error) { return len(b), nil }
