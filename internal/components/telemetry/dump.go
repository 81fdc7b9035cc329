package telemetry

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

const report_resty_dump = "resty.dump"

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: response status
// 5: response headers in ("Key: Value" format)
// 6: response body
const exchangeTemplate = `---- REQUEST ----

%s %s

%s

---- RESPONSE ----

%s

%s

%s`

// formatExchange renders a request and its response with credentials redacted.
// Request bodies are left out since the only requests carrying one are logins.
func formatExchange(res *resty.Response) string {
	var requestHeaders string
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}
	return credentialPattern.ReplaceAllString(fmt.Sprintf(
		exchangeTemplate,
		res.Request.Method, res.Request.URL,
		requestHeaders,
		res.Status(),
		formatHeaders(res.Header()),
		res.String(),
	), "${1}[REDACTED]")
}

// DumpResty writes every exchange the client completes to its own numbered
// file in dir, creating dir when it does not exist.
func DumpResty(client *resty.Client, tel API, dir string) error {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}

	var counter atomic.Uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := counter.Add(1)
		name := filepath.Join(dir, strconv.FormatUint(id, 10)+".txt")
		err := os.WriteFile(name, []byte(formatExchange(res)), 0o600)
		if err != nil {
			tel.ReportWarning(report_resty_dump, fmt.Errorf("write %s: %w", name, err))
		}
		return nil
	})
	return nil
}
