// Package telemetry forwards unexpected failures to Sentry when a DSN is configured.
package telemetry

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

// Reporter receives failures that are not part of normal flow, such as
// network errors talking to the backend.
type Reporter interface {
	CaptureException(err error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) CaptureException(error) {}

// SentryReporter sends exceptions to Sentry.
type SentryReporter struct {
	initialized bool
}

// NewSentryReporter initialises Sentry. An empty DSN yields a disabled reporter.
func NewSentryReporter(dsn, environment string) *SentryReporter {
	if dsn == "" {
		log.Debug().Msg("SENTRY_DSN not set, Sentry disabled")
		return &SentryReporter{}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		log.Err(err).Msg("Sentry initialization failed")
		return &SentryReporter{}
	}

	log.Info().Msg("Sentry initialized")
	return &SentryReporter{initialized: true}
}

func (s *SentryReporter) Enabled() bool {
	return s.initialized
}

func (s *SentryReporter) CaptureException(err error) {
	if !s.initialized || err == nil {
		return
	}
	sentry.CaptureException(err)
}

// Flush waits up to timeout for buffered events to be delivered.
func (s *SentryReporter) Flush(timeout time.Duration) {
	if !s.initialized {
		return
	}
	sentry.Flush(timeout)
}
