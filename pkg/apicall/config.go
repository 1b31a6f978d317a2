package apicall

import (
	"github.com/Sternrassler/apicore/pkg/logging"
	"github.com/Sternrassler/apicore/pkg/request"
	"github.com/Sternrassler/apicore/pkg/transport"
)

// GlobalConfig holds what every call of an API client shares.
type GlobalConfig struct {
	request.Environment

	// Transport executes requests. Required.
	Transport transport.Transport

	// Callback observes every request and response.
	Callback transport.Callback

	// GlobalErrors are matched after the handler's own error cases.
	GlobalErrors map[string]ErrorCase

	// Logging controls request/response log lines.
	Logging logging.HTTPConfig
}
