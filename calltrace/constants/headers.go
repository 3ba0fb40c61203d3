package constants

const (
	// HeaderID is the HTTP header carrying the request correlation ID.
	HeaderID = "X-Request-Id"

	// HeaderUserAgent is the standard User-Agent header name.
	HeaderUserAgent = "User-Agent"

	// MetadataID is the gRPC metadata key carrying the correlation ID.
	MetadataID = "x-request-id"

	// ObfuscatedValue replaces sensitive body fields in access logs.
	ObfuscatedValue = "****"

	// HeaderMaskValue replaces deny-listed header values in access logs.
	HeaderMaskValue = "***"

	// LoggerDefaultSeparator separates the correlation prefix from messages.
	LoggerDefaultSeparator = " | "

	// LoggerName is the default logger namespace.
	LoggerName = "calltrace"

	// AsyncLoggerName is the logger namespace for async instrumentation.
	AsyncLoggerName = "calltrace.async"
)

// sensitiveRequestHeaders are masked wholesale in access logs. This is a
// fixed deny list applied to header maps, independent of the content-based
// detector used for payloads.
var sensitiveRequestHeaders = []string{
	"authorization",
	"cookie",
	"set-cookie",
	"proxy-authorization",
}

// SensitiveRequestHeaders returns the deny-listed header names, lowercase.
// A fresh slice is returned so callers cannot mutate the shared list.
func SensitiveRequestHeaders() []string {
	out := make([]string, len(sensitiveRequestHeaders))
	copy(out, sensitiveRequestHeaders)

	return out
}
