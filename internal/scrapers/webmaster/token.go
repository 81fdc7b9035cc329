package webmaster

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// the token is preceded by an escaped `=` (`\75`) and followed by one escape char
	tokenPrefixLen = 3
	tokenSuffixLen = 1
)

func tokenPattern(anchor string, delimiter TokenDelimiter) (*regexp.Regexp, error) {
	return regexp.Compile(
		`(?is)` + regexp.QuoteMeta(anchor) + `.*?46security_token(.*?)` + string(delimiter),
	)
}

// ExtractToken finds the first security token following anchor in body.
// The text captured between `46security_token` and the delimiter has its
// escaping artifacts stripped, an empty result is treated as a failure.
func ExtractToken(body []byte, anchor string, delimiter TokenDelimiter) (string, error) {
	pattern, err := tokenPattern(anchor, delimiter)
	if err != nil {
		return "", err
	}
	groups := pattern.FindSubmatch(body)
	if len(groups) < 2 {
		return "", fmt.Errorf("%w: no match for anchor %q", ErrTokenExtraction, anchor)
	}
	captured := string(groups[1])
	if len(captured) <= tokenPrefixLen+tokenSuffixLen {
		return "", fmt.Errorf("%w: empty token for anchor %q", ErrTokenExtraction, anchor)
	}
	return captured[tokenPrefixLen : len(captured)-tokenSuffixLen], nil
}

// isLoginPage reports whether body is the account sign-in page the console
// serves in place of a report page when the session is no longer valid.
func isLoginPage(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	if doc.Find("form#gaia_loginform, input[name=Passwd]").Length() > 0 {
		return true
	}
	action, ok := doc.Find("form").First().Attr("action")
	return ok && strings.Contains(action, "ServiceLogin")
}

// extractToken wraps ExtractToken and distinguishes an expired session from a
// page that does not carry a token.
func extractToken(body []byte, anchor string, delimiter TokenDelimiter) (string, error) {
	token, err := ExtractToken(body, anchor, delimiter)
	if err == nil {
		return token, nil
	}
	if isLoginPage(body) {
		return "", fmt.Errorf("%w: %w", err, ErrSessionExpired)
	}
	return "", err
}
