package webmaster

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"gwtdownloads/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

const (
	testIdentity   = "user@example.com"
	testSecret     = "secret"
	testCredential = "DQAAAHkAAAB-credential"
	testWebsite    = "http://example.com/"
)

const testSitesFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:wt="http://schemas.google.com/webmasters/tools/2007">
  <title>Sites</title>
  <entry>
    <title type="text">http://example.com/</title>
    <wt:verified>true</wt:verified>
  </entry>
  <entry>
    <title type="text">http://unverified.example.com/</title>
    <wt:verified>false</wt:verified>
  </entry>
</feed>`

var testTelemetry = telemetry.SlogAPI{}

type route func(query url.Values) (int, string)

func ok(body string) route {
	return func(url.Values) (int, string) {
		return http.StatusOK, body
	}
}

// fakeConsole stands in for the console host, it accepts a single identity
// and answers authenticated GETs from its routes.
type fakeConsole struct {
	server *httptest.Server

	mu          sync.Mutex
	routes      map[string]route
	requests    []*url.URL
	contentType string
	// replaces the login response body when set
	loginBody string
}

func newFakeConsole(t *testing.T) *fakeConsole {
	c := &fakeConsole{
		routes: map[string]route{
			sitesFeedPath: ok(testSitesFeed),
		},
	}
	c.server = httptest.NewServer(http.HandlerFunc(c.serveHTTP))
	t.Cleanup(c.server.Close)
	return c
}

func (c *fakeConsole) route(path string, r route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[path] = r
}

func (c *fakeConsole) serveHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.requests = append(c.requests, r.URL)
	handler, found := c.routes[r.URL.Path]
	c.mu.Unlock()

	if r.Method == http.MethodPost && r.URL.Path == loginPath {
		c.mu.Lock()
		c.contentType = r.Header.Get("Content-Type")
		loginBody := c.loginBody
		c.mu.Unlock()

		if r.FormValue("Email") != testIdentity ||
			strings.TrimPrefix(r.FormValue("Passwd"), "@") != testSecret ||
			r.FormValue("service") != serviceName ||
			r.FormValue("accountType") != accountType {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, "Error=BadAuthentication\n")
			return
		}
		if loginBody != "" {
			fmt.Fprint(w, loginBody)
			return
		}
		fmt.Fprintf(w, "SID=sid\nLSID=lsid\nAuth=%s\n", testCredential)
		return
	}

	if r.Header.Get("Authorization") != "GoogleLogin auth="+testCredential ||
		r.Header.Get("GData-Version") != "2" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	code, body := handler(r.URL.Query())
	w.WriteHeader(code)
	fmt.Fprint(w, body)
}

func (c *fakeConsole) respondToLogin(body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loginBody = body
}

func (c *fakeConsole) lastContentType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentType
}

// reset forgets recorded requests.
func (c *fakeConsole) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = nil
}

func (c *fakeConsole) recorded() []*url.URL {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*url.URL, len(c.requests))
	copy(out, c.requests)
	return out
}

func (c *fakeConsole) client(t *testing.T) *Client {
	client, err := NewClient(ClientOptions{
		Transport: TransportOptions{BaseUrl: c.server.URL},
	}, testTelemetry)
	require.NoError(t, err)
	return client
}

// ready returns a logged in client with website and date range set, no
// request made while preparing it is recorded.
func (c *fakeConsole) ready(t *testing.T) *Client {
	ctx := testContext(t)
	client := c.client(t)
	require.NoError(t, client.Login(ctx, testIdentity, testSecret))
	_, err := client.SetWebsite(ctx, testWebsite)
	require.NoError(t, err)
	dates, err := ParseDateRange("2012-01-10", "2012-01-12")
	require.NoError(t, err)
	_, err = client.SetDateRange(dates)
	require.NoError(t, err)
	c.reset()
	return client
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
