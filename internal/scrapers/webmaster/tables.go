package webmaster

import (
	"strings"
)

// Table is one of the reports the console can export.
type Table string

const (
	TopPages        Table = "TOP_PAGES"
	TopQueries      Table = "TOP_QUERIES"
	CrawlErrors     Table = "CRAWL_ERRORS"
	ContentErrors   Table = "CONTENT_ERRORS"
	ContentKeywords Table = "CONTENT_KEYWORDS"
	InternalLinks   Table = "INTERNAL_LINKS"
	ExternalLinks   Table = "EXTERNAL_LINKS"
	SocialActivity  Table = "SOCIAL_ACTIVITY"
	LatestBacklinks Table = "LATEST_BACKLINKS"
)

// AllTables lists every known table in canonical order.
func AllTables() []Table {
	return []Table{
		TopPages,
		TopQueries,
		CrawlErrors,
		ContentErrors,
		ContentKeywords,
		InternalLinks,
		ExternalLinks,
		SocialActivity,
		LatestBacklinks,
	}
}

func (t Table) String() string {
	return string(t)
}

type protocol int

const (
	protocolDirect protocol = iota
	protocolTokenized
	protocolCrawlErrors
)

type TokenDelimiter string

const (
	// escaped closing parenthesis after the token
	DelimiterParen TokenDelimiter = `\)`
	// escaped ampersand (`\x26`) after the token
	DelimiterX26 TokenDelimiter = `x26`
)

// tableDescriptor describes the two requests needed to download a tokenized table.
type tableDescriptor struct {
	tokenPath    string
	delimiter    TokenDelimiter
	downloadPath string
}

var tableDescriptors = map[Table]tableDescriptor{
	ContentErrors: {
		tokenPath:    "html-suggestions",
		delimiter:    DelimiterParen,
		downloadPath: "content-problems-dl",
	},
	ContentKeywords: {
		tokenPath:    "keywords",
		delimiter:    DelimiterParen,
		downloadPath: "content-words-dl",
	},
	InternalLinks: {
		tokenPath:    "internal-links",
		delimiter:    DelimiterParen,
		downloadPath: "internal-links-dl",
	},
	ExternalLinks: {
		tokenPath:    "external-links-domain",
		delimiter:    DelimiterParen,
		downloadPath: "external-links-domain-dl",
	},
	SocialActivity: {
		tokenPath:    "social-activity",
		delimiter:    DelimiterX26,
		downloadPath: "social-activity-dl",
	},
	LatestBacklinks: {
		tokenPath:    "external-links-domain",
		delimiter:    DelimiterParen,
		downloadPath: "backlinks-latest-dl",
	},
}

func (t Table) protocol() (protocol, error) {
	switch t {
	case TopPages, TopQueries:
		return protocolDirect, nil
	case CrawlErrors:
		return protocolCrawlErrors, nil
	}
	if _, ok := tableDescriptors[t]; ok {
		return protocolTokenized, nil
	}
	return 0, UnknownTableError{Table: string(t)}
}

func shorthand(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

// ParseTable resolves a table by its canonical name (TOP_QUERIES) or by its
// shorthand (topqueries, TopQueries).
func ParseTable(name string) (Table, error) {
	key := shorthand(strings.TrimSpace(name))
	for _, t := range AllTables() {
		if shorthand(string(t)) == key {
			return t, nil
		}
	}
	return "", UnknownTableError{Table: name}
}

// FilterTables keeps the known tables that appear in names, in canonical order.
// Unknown names are ignored.
func FilterTables(names []string) []Table {
	wanted := map[Table]bool{}
	for _, n := range names {
		t, err := ParseTable(n)
		if err != nil {
			continue
		}
		wanted[t] = true
	}
	var out []Table
	for _, t := range AllTables() {
		if wanted[t] {
			out = append(out, t)
		}
	}
	return out
}
