// README: Sentry error reporter; a no-op when no DSN is configured.
package infra

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter captures non-recoverable failures.
type Reporter interface {
	Report(err error, tags map[string]string)
	Flush()
}

type noopReporter struct{}

func (noopReporter) Report(error, map[string]string) {}
func (noopReporter) Flush()                          {}

type sentryReporter struct{}

func (sentryReporter) Report(err error, tags map[string]string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

func (sentryReporter) Flush() {
	sentry.Flush(2 * time.Second)
}

// NewReporter initializes the sentry SDK when dsn is non-empty.
func NewReporter(dsn string) (Reporter, error) {
	if dsn == "" {
		return noopReporter{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, ServerName: "dispatch"}); err != nil {
		return nil, err
	}
	return sentryReporter{}, nil
}

// NopReporter is used by tests and the CLIs.
func NopReporter() Reporter { return noopReporter{} }
