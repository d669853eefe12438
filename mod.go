// Package scrutin implements the coordination core of a verifiable,
// threshold-encrypted election: the election lifecycle state machine, guardian
// quorum tracking, encrypted tally creation and threshold-decryption
// combination. Presentation, authentication and transport are left to the
// caller of the tally.Service facade.
package scrutin

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.InfoLevel)

// PromCollectors exposes the metric collectors registered by the packages of
// this module so that a frontend can serve them.
var PromCollectors []prometheus.Collector
