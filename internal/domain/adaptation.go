package domain

// Adaptation body keys, checked in this order.
const (
	KeyServerNumber = "server_number"
	KeyDimmerFactor = "dimmer_factor"
)

// AdaptationDirective is a decoded /execute body. Both fields keep the
// client's text so coercion failures are reported per field.
type AdaptationDirective struct {
	ServerNumber string
	DimmerFactor string
}

// Per-field status texts returned by /execute.
const (
	StatusOK                     = "OK"
	StatusServersSatisfied       = "Number of servers already satisfied"
	StatusDimmerSatisfied        = "Dimmer factor already satisfied"
	StatusMaxServersExceeded     = "error: max servers exceeded"
	StatusInvalidArgument        = "error: invalid argument"
	StatusOutOfRange             = "error: out of range"
	StatusMissingDimmer          = "error: missing dimmer argument"
	StatusExecutionManagerFailed = "error: execution manager failure"
)

// AdaptationOutcome is the combined, partial-success result of one directive.
type AdaptationOutcome struct {
	ServerStatus string
	DimmerStatus string

	// Execution Manager calls actually issued.
	ServersAdded    int
	ServersRemoved  int
	BrownoutChanged bool
}
