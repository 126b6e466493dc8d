package engine

import "errors"

// Failure taxonomy for mutation operations. Every error here is a local
// validation failure surfaced synchronously to the caller; none is retried
// by the engine itself.
var (
	ErrUnauthenticated   = errors.New("no active identity")
	ErrPlotNotFound      = errors.New("plot not found")
	ErrAlreadyOwned      = errors.New("plot already owned")
	ErrNotOwner          = errors.New("you do not own this plot")
	ErrAlreadyDeployed   = errors.New("charger already deployed")
	ErrSessionActive     = errors.New("session already active")
	ErrNoCharger         = errors.New("no charger on this plot")
	ErrInsufficientFunds = errors.New("not enough points")
	ErrNoFreePlot        = errors.New("no free plots available")
)
