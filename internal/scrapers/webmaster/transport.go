package webmaster

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"gwtdownloads/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_transport_get  = "transport.get"
	report_transport_post = "transport.post"
	report_transport_tls  = "transport.tls"
)

const (
	DefaultBaseUrl        = "https://www.google.com"
	DefaultConnectTimeout = 30 * time.Second

	serviceUri = "/webmasters/tools/"
)

// BodyEncoding selects how form fields are written into a POST body.
type BodyEncoding int

const (
	// EncodingAuto uses EncodingURL when the login secret starts with `@`
	// and EncodingMultipart otherwise.
	EncodingAuto BodyEncoding = iota
	EncodingMultipart
	EncodingURL
)

type TransportOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// bounds connection establishment, defaults to DefaultConnectTimeout
	ConnectTimeout time.Duration
	// disables certificate verification, only meant for debugging proxies
	InsecureSkipVerify bool
	// 0 disables rate limiting
	RequestsPerSecond float64
	// when set, every request and response is written to this directory
	DumpDir string
}

// transport performs requests against the console host, every GET is
// authenticated with the current session credential.
type transport struct {
	http  *resty.Client
	creds *credentials
	tel   telemetry.API
}

func newTransport(opts TransportOptions, creds *credentials, tel telemetry.API) (*transport, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if _, err := url.Parse(opts.BaseUrl); err != nil {
		return nil, err
	}

	roundTripper := http.DefaultTransport.(*http.Transport).Clone()
	roundTripper.DialContext = (&net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	roundTripper.TLSHandshakeTimeout = opts.ConnectTimeout
	if opts.InsecureSkipVerify {
		tel.ReportWarning(report_transport_tls, "certificate verification is disabled")
		roundTripper.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	httpClient := resty.NewWithClient(&http.Client{
		Transport: roundTripper,
		Jar:       jar,
	})
	httpClient.SetBaseURL(opts.BaseUrl)
	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, "gwtdownloads/webmaster/http")
	if opts.DumpDir != "" {
		err := telemetry.DumpResty(httpClient, tel, opts.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("dump directory: %w", err)
		}
	}

	return &transport{http: httpClient, creds: creds, tel: tel}, nil
}

func authorizationHeader(c Credential) string {
	return fmt.Sprintf("GoogleLogin auth=%s", c)
}

// get fetches ref (a path with query, or an absolute url) with the session
// credential attached.
func (t *transport) get(ctx context.Context, ref string) ([]byte, error) {
	credential, err := t.creds.get()
	if err != nil {
		return nil, err
	}

	res, err := t.http.R().
		SetContext(ctx).
		SetHeader("Authorization", authorizationHeader(credential)).
		SetHeader("GData-Version", "2").
		Get(ref)
	if err != nil {
		t.tel.ReportBroken(report_transport_get, fmt.Errorf("fetch: %w", err), ref)
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		err := BadStatusError{Code: res.StatusCode(), URL: res.Request.URL}
		t.tel.ReportBroken(report_transport_get, err)
		return nil, err
	}
	return res.Body(), nil
}

// post submits form fields to path, it does not require a session.
func (t *transport) post(ctx context.Context, path string, fields map[string]string, encoding BodyEncoding) ([]byte, error) {
	req := t.http.R().SetContext(ctx)
	switch encoding {
	case EncodingURL:
		values := url.Values{}
		for k, v := range fields {
			values.Set(k, v)
		}
		req.SetHeader("Content-Type", "application/x-www-form-urlencoded").
			SetBody(values.Encode())
	default:
		req.SetMultipartFormData(fields)
	}

	res, err := req.Post(path)
	if err != nil {
		t.tel.ReportBroken(report_transport_post, fmt.Errorf("fetch: %w", err), path)
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		err := BadStatusError{Code: res.StatusCode(), URL: res.Request.URL}
		t.tel.ReportBroken(report_transport_post, err)
		return nil, err
	}
	return res.Body(), nil
}

// servicePath builds a console path under /webmasters/tools/ with the given query.
func servicePath(endpoint string, query url.Values) string {
	ref := url.URL{Path: serviceUri + endpoint}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	return ref.String()
}
