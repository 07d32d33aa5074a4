package logger

import (
	"log"
	"net/http"
	"time"

	"github.com/rollbar/rollbar-go"
)

// Reporter logs errors and forwards them to Rollbar when a token is configured.
type Reporter struct {
	enabled bool
}

// NewReporter configures the global Rollbar client. An empty token keeps reporting local.
func NewReporter(token, env, codeVersion string) *Reporter {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(codeVersion)
	rollbar.SetEnabled(token != "")
	return &Reporter{enabled: token != ""}
}

// Error logs err with its request context.
func (r *Reporter) Error(req *http.Request, err error, extras map[string]interface{}) {
	if req != nil {
		log.Printf("error: %s %s: %v", req.Method, req.URL.Path, err)
	} else {
		log.Printf("error: %v", err)
	}
	if r == nil || !r.enabled {
		return
	}
	args := []interface{}{err}
	if req != nil {
		args = append(args, req)
	}
	if len(extras) > 0 {
		args = append(args, extras)
	}
	rollbar.Error(args...)
}

// Critical reports a failure that stops the process.
func (r *Reporter) Critical(err error) {
	log.Printf("critical: %v", err)
	if r != nil && r.enabled {
		rollbar.Critical(err)
	}
}

// Close flushes pending reports, waiting at most timeout.
func (r *Reporter) Close(timeout time.Duration) {
	if r == nil || !r.enabled {
		return
	}
	done := make(chan struct{})
	go func() {
		rollbar.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("rollbar flush timed out after %s", timeout)
	}
}
