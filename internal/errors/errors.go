package errors

import (
	"errors"
)

// Moderation error kinds. Everything except ErrStartupConfig stays inside a
// single message task.
var (
	ErrStartupConfig    = errors.New("startup config error")
	ErrClassifier       = errors.New("classifier error")
	ErrScoreAbsent      = errors.New("classifier score absent")
	ErrGatewayOperation = errors.New("gateway operation error")
)
