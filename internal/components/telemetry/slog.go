package telemetry

import (
	"fmt"
	"log/slog"
	"regexp"
)

// credentialPattern matches the places a session credential or security token can
// show up in a logged value: auth headers, the SID/LSID/Auth lines of the login
// response and download urls. The login keys only match at the start of a line,
// a word or a query parameter so values like `XSID=` are left alone.
var credentialPattern = regexp.MustCompile(`(?im)(GoogleLogin auth=|(?:^|[\s?&])(?:L?SID|Auth)=|security_token=)[^\s&"']+`)

func redact(value any) any {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case error:
		s = v.Error()
	case fmt.Stringer:
		s = v.String()
	default:
		return value
	}
	return credentialPattern.ReplaceAllString(s, "${1}[REDACTED]")
}

// SlogAPI implements API using the log/slog package.
type SlogAPI struct{}

func (SlogAPI) formatParams(out *[]any, params []any) {
	for i, p := range params {
		*out = append(
			*out,
			fmt.Sprintf("params.%d", i),
			redact(p),
		)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	slog.Debug(message, remainingPairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}
