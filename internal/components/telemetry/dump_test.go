package telemetry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestDumpResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("SID=abc\nAuth=DQAAAHk\n"))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dump")
	client := resty.New().SetBaseURL(server.URL)
	require.NoError(t, DumpResty(client, SlogAPI{}, dir))

	_, err := client.R().
		SetHeader("Authorization", "GoogleLogin auth=secret").
		Get("/webmasters/tools/feeds/sites/")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "GET "+server.URL+"/webmasters/tools/feeds/sites/")
	require.Contains(t, string(contents), "Authorization: GoogleLogin auth=[REDACTED]")
	require.Contains(t, string(contents), "SID=[REDACTED]")
	require.Contains(t, string(contents), "Auth=[REDACTED]")
	require.NotContains(t, string(contents), "secret")
	require.NotContains(t, string(contents), "DQAAAHk")
	require.NotContains(t, string(contents), "abc")
}
