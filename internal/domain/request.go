package domain

// Request is one inbound control request, rebuilt from a single receive buffer.
type Request struct {
	Method string
	Path   string
	Body   string
}

// Supported methods.
const (
	MethodGet = "GET"
	MethodPut = "PUT"
)

// Supported paths.
const (
	PathMonitor                 = "/monitor"
	PathMonitorSchema           = "/monitor_schema"
	PathExecuteSchema           = "/execute_schema"
	PathAdaptationOptions       = "/adaptation_options"
	PathAdaptationOptionsSchema = "/adaptation_options_schema"
	PathExecute                 = "/execute"
)

// Document keys understood by a DocumentLoader.
const (
	DocMonitorSchema           = "monitor_schema"
	DocExecuteSchema           = "execute_schema"
	DocAdaptationOptions       = "adaptation_options"
	DocAdaptationOptionsSchema = "adaptation_options_schema"
)
