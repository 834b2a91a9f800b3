package orchestrator

import (
	"errors"

	"github.com/go-logr/logr"
)

func discardLog() logr.Logger {
	return logr.Discard()
}

var errTimeout = errors.New("fakeFetcher: simulated timeout")
