package zap

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

const stringFieldType = zapcore.StringType

// controlCharReplacer escapes control characters that can be used for log
// injection (CWE-117). Newlines, carriage returns, and tabs in log messages
// can forge fake log entries in console encoders, mislead incident
// response, or inject false audit trail entries.
//
// The JSON encoder already escapes these inside string values, so this is
// primarily a defense for development environments using console output.
var controlCharReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// sanitizeString escapes control characters in a single string value.
func sanitizeString(s string) string {
	return controlCharReplacer.Replace(s)
}

// sanitizeFields escapes control characters in all string-typed field
// values. Non-string values pass through unchanged.
func sanitizeFields(fields []Field) []Field {
	for i, f := range fields {
		if f.Type == stringFieldType && strings.ContainsAny(f.String, "\n\r\t") {
			fields[i].String = sanitizeString(f.String)
		}
	}

	return fields
}
