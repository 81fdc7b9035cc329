package webmaster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractToken(t *testing.T) {
	table := []struct {
		name      string
		body      string
		anchor    string
		delimiter TokenDelimiter
		expected  string
		err       error
	}{
		{
			name:      "paren family",
			body:      `var dl = '/webmasters/tools/content-problems-dl?hl\75en\46security_token\75AbC-123_x:99')`,
			anchor:    "content-problems-dl",
			delimiter: DelimiterParen,
			expected:  "AbC-123_x:99",
		},
		{
			name:      "x26 family",
			body:      `"social-activity-dl?hl\75en\46security_token\75T0KEN\x26prop\75ALL"`,
			anchor:    "social-activity-dl",
			delimiter: DelimiterX26,
			expected:  "T0KEN",
		},
		{
			name:      "empty anchor",
			body:      "header\n<a href=\"crawl-errors-dl?hl\\75en\\46security_token\\75CRAWL\\x26type\\0750\">",
			anchor:    "",
			delimiter: DelimiterX26,
			expected:  "CRAWL",
		},
		{
			name:      "case insensitive anchor across lines",
			body:      "INTERNAL-LINKS-DL\n?hl\\75en\n\\46security_token\\75tok')",
			anchor:    "internal-links-dl",
			delimiter: DelimiterParen,
			expected:  "tok",
		},
		{
			name:      "first match wins",
			body:      `keywords content-words-dl\46security_token\75one') content-words-dl\46security_token\75two')`,
			anchor:    "content-words-dl",
			delimiter: DelimiterParen,
			expected:  "one",
		},
		{
			name:      "missing anchor",
			body:      `internal-links-dl\46security_token\75tok')`,
			anchor:    "content-problems-dl",
			delimiter: DelimiterParen,
			err:       ErrTokenExtraction,
		},
		{
			name:      "empty token",
			body:      `content-problems-dl\46security_token\75')`,
			anchor:    "content-problems-dl",
			delimiter: DelimiterParen,
			err:       ErrTokenExtraction,
		},
		{
			name:      "wrong delimiter family",
			body:      `social-activity-dl\46security_token\75T0KEN\x26`,
			anchor:    "social-activity-dl",
			delimiter: DelimiterParen,
			err:       ErrTokenExtraction,
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			token, err := ExtractToken([]byte(row.body), row.anchor, row.delimiter)
			if row.err != nil {
				require.ErrorIs(t, err, row.err)
				require.Empty(t, token)
				return
			}
			require.NoError(t, err)
			require.Equal(t, row.expected, token)
		})
	}
}

func TestExtractTokenFromLoginPage(t *testing.T) {
	page := `<html><body>
		<form id="gaia_loginform" action="https://accounts.google.com/ServiceLoginAuth" method="post">
			<input type="email" name="Email">
			<input type="password" name="Passwd">
		</form>
	</body></html>`

	_, err := extractToken([]byte(page), "content-problems-dl", DelimiterParen)
	require.ErrorIs(t, err, ErrTokenExtraction)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = extractToken([]byte("<html><body>no token here</body></html>"), "content-problems-dl", DelimiterParen)
	require.ErrorIs(t, err, ErrTokenExtraction)
	require.False(t, errors.Is(err, ErrSessionExpired))
}
