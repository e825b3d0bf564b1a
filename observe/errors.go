package observe

import "errors"

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSamplePct indicates Tracing.SamplePct is not in [0.0, 1.0].
	ErrInvalidSamplePct = errors.New("observe: sample percentage must be between 0.0 and 1.0")

	// ErrInvalidExporter indicates an unknown exporter name.
	ErrInvalidExporter = errors.New("observe: invalid exporter")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")
)

// RedactedFields lists field keys that are automatically redacted in logs.
// These fields may contain credentials or other secrets.
var RedactedFields = []string{
	"password",
	"secret",
	"token",
	"credential",
}
