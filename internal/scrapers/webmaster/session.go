package webmaster

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gwtdownloads/internal/components/telemetry"
)

const report_session_login = "session.login"

const (
	loginPath   = "/accounts/ClientLogin"
	accountType = "HOSTED_OR_GOOGLE"
	serviceName = "sitemaps"
	// ClientSource identifies this client to the login endpoint.
	ClientSource = "gwtdownloads-go-0.1"
)

// Credential is the opaque session token returned by login, the zero value
// means no session.
type Credential string

// credentials holds the session credential, it is written by login and read by
// every authenticated request.
type credentials struct {
	mu    sync.RWMutex
	value Credential
}

func (c *credentials) get() (Credential, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.value == "" {
		return "", ErrNotAuthenticated
	}
	return c.value, nil
}

func (c *credentials) set(value Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

var authLineRegex = regexp.MustCompile(`(?m)^Auth=([^\r\n]*)`)

type sessionManager struct {
	transport *transport
	creds     *credentials
	encoding  BodyEncoding
	tel       telemetry.API
}

func (s sessionManager) bodyEncoding(secret string) BodyEncoding {
	if s.encoding != EncodingAuto {
		return s.encoding
	}
	if strings.HasPrefix(secret, "@") {
		return EncodingURL
	}
	return EncodingMultipart
}

// login exchanges identity and secret for a session credential and stores it.
func (s sessionManager) login(ctx context.Context, identity, secret string) (Credential, error) {
	loginError := func(err error) error {
		return fmt.Errorf("webmaster: login failed: %w", err)
	}

	s.tel.ReportDebug(report_session_login, identity)

	body, err := s.transport.post(ctx, loginPath, map[string]string{
		"accountType": accountType,
		"Email":       identity,
		"Passwd":      secret,
		"service":     serviceName,
		"source":      ClientSource,
	}, s.bodyEncoding(secret))
	if err != nil {
		s.tel.ReportBroken(report_session_login, err)
		return "", loginError(err)
	}

	groups := authLineRegex.FindSubmatch(body)
	if len(groups) < 2 || len(strings.TrimSpace(string(groups[1]))) == 0 {
		s.tel.ReportBroken(report_session_login, ErrTokenNotFound)
		return "", loginError(ErrTokenNotFound)
	}

	credential := Credential(strings.TrimSpace(string(groups[1])))
	s.creds.set(credential)
	return credential, nil
}
