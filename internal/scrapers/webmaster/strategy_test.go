package webmaster

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testDownloadsList = ok(`{
	"TOP_PAGES": "/webmasters/tools/top-pages-dl?hl=en&siteUrl=http%3A%2F%2Fexample.com%2F",
	"TOP_QUERIES": "/webmasters/tools/top-search-queries-dl?hl=en&siteUrl=http%3A%2F%2Fexample.com%2F"
}`)

func mustDate(t *testing.T, value string) time.Time {
	d, err := time.Parse(time.DateOnly, value)
	require.NoError(t, err)
	return d
}

func TestDirectTable(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	console.route(serviceUri+downloadsListEndpoint, testDownloadsList)
	console.route(serviceUri+"top-search-queries-dl", ok("Query,Impressions\nfoo,10\n"))
	client := console.ready(t)

	payload, err := client.GetTableData(ctx, TopQueries)
	require.NoError(t, err)
	require.Equal(t, TopQueries, payload.Table)
	require.Equal(t, "Query,Impressions\nfoo,10\n", string(payload.Body))

	requests := console.recorded()
	require.Len(t, requests, 2)
	require.Equal(t, serviceUri+downloadsListEndpoint, requests[0].Path)
	require.Equal(t, "en", requests[0].Query().Get("hl"))
	require.Equal(t, testWebsite, requests[0].Query().Get("siteUrl"))

	expected := url.Values{
		"hl":      {"en"},
		"siteUrl": {testWebsite},
		"prop":    {"ALL"},
		"db":      {"20120110"},
		"de":      {"20120112"},
		"more":    {"true"},
	}
	if diff := cmp.Diff(expected, requests[1].Query()); diff != "" {
		t.Fatalf("download query mismatch (-want +got):\n%s", diff)
	}
}

func TestDirectTableMissingLink(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	console.route(serviceUri+downloadsListEndpoint, ok(`{"TOP_QUERIES": "/webmasters/tools/top-search-queries-dl"}`))
	client := console.ready(t)

	_, err := client.GetTableData(ctx, TopPages)
	require.ErrorIs(t, err, ErrDownloadURLNotFound)
	require.Len(t, console.recorded(), 1)
}

func TestTokenizedTables(t *testing.T) {
	for table, desc := range tableDescriptors {
		t.Run(string(table), func(t *testing.T) {
			ctx := testContext(t)
			console := newFakeConsole(t)

			suffix := `')`
			if desc.delimiter == DelimiterX26 {
				suffix = `\x26`
			}
			page := fmt.Sprintf(`<script>var dl = '%s?hl\75en\46security_token\75tok-%s%s;</script>`, desc.downloadPath, table, suffix)
			console.route(serviceUri+desc.tokenPath, ok(page))
			console.route(serviceUri+desc.downloadPath, ok("A,B\n1,2\n"))
			client := console.ready(t)

			payload, err := client.GetTableData(ctx, table)
			require.NoError(t, err)
			require.Equal(t, "A,B\n1,2\n", string(payload.Body))

			requests := console.recorded()
			require.Len(t, requests, 2)
			require.Equal(t, serviceUri+desc.tokenPath, requests[0].Path)

			download := requests[1].Query()
			require.Equal(t, serviceUri+desc.downloadPath, requests[1].Path)
			require.Equal(t, "tok-"+string(table), download.Get("security_token"))
			require.Equal(t, "20120110", download.Get("db"))
			require.Equal(t, "20120112", download.Get("de"))
			require.Equal(t, "ALL", download.Get("prop"))
			require.Equal(t, "true", download.Get("more"))
		})
	}
}

func TestTokenizedTableWithoutToken(t *testing.T) {
	for table, desc := range tableDescriptors {
		t.Run(string(table), func(t *testing.T) {
			ctx := testContext(t)
			console := newFakeConsole(t)
			console.route(serviceUri+desc.tokenPath, ok("<html><body>nothing</body></html>"))
			client := console.ready(t)

			_, err := client.GetTableData(ctx, table)
			require.ErrorIs(t, err, ErrTokenExtraction)
			require.Len(t, console.recorded(), 1)
		})
	}
}

func TestTokenizedTableBadStatus(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	console.route(serviceUri+"keywords", func(url.Values) (int, string) {
		return http.StatusServiceUnavailable, "down"
	})
	client := console.ready(t)

	_, err := client.GetTableData(ctx, ContentKeywords)
	var status BadStatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusServiceUnavailable, status.Code)
	require.Contains(t, status.URL, "/webmasters/tools/keywords")
}

func crawlErrorsPage(query url.Values) (int, string) {
	return http.StatusOK, fmt.Sprintf(`"crawl-errors-dl?hl\75en\46security_token\75ce-%s\x26type\0750"`, query.Get("tid"))
}

func TestCrawlErrors(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	console.route(serviceUri+crawlErrorsEndpoint, crawlErrorsPage)
	console.route(serviceUri+crawlErrorsDownloadEndpoint, ok("URL,Code\n/a,404\n"))
	client := console.ready(t)

	payload, err := client.GetTableData(ctx, CrawlErrors)
	require.NoError(t, err)
	require.Equal(t, "URL,Code\n/a,404\n", string(payload.Body))

	requests := console.recorded()
	require.Len(t, requests, 2)
	require.Equal(t, "we", requests[0].Query().Get("tid"))
	require.Equal(t, "ce-we", requests[1].Query().Get("security_token"))
	require.Equal(t, "0", requests[1].Query().Get("type"))
	require.False(t, requests[1].Query().Has("sort"))
}

func TestSeparatedCrawlErrors(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	console.route(serviceUri+crawlErrorsEndpoint, crawlErrorsPage)
	console.route(serviceUri+crawlErrorsDownloadEndpoint, func(query url.Values) (int, string) {
		return http.StatusOK, fmt.Sprintf("%s|%s|%s", query.Get("type"), query.Get("sort"), query.Get("security_token"))
	})
	client := console.ready(t)

	tables, err := client.GetCrawlErrorTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 40)
	for _, key := range CrawlErrorKeys() {
		require.Contains(t, tables, key)
	}

	require.Equal(t, "1|kAppErrorSoft-404s|ce-mx", string(tables[CrawlErrorKey{Sort: "soft404", Type: "mobile-wml-xhtml-errors"}]))
	require.Equal(t, "2|sitemap|ce-mc", string(tables[CrawlErrorKey{Sort: "in-sitemaps", Type: "mobile-chtml-errors"}]))
	require.Equal(t, "4|0|ce-we", string(tables[CrawlErrorKey{Sort: "http", Type: "news-crawl-errors"}]))

	// one token page and one download per cell
	require.Len(t, console.recorded(), 80)
}

func TestSeparatedCrawlErrorsAbortsOnFailure(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	console.route(serviceUri+crawlErrorsEndpoint, crawlErrorsPage)
	console.route(serviceUri+crawlErrorsDownloadEndpoint, func(query url.Values) (int, string) {
		if query.Get("type") == "3" && query.Get("sort") == "4" {
			return http.StatusInternalServerError, ""
		}
		return http.StatusOK, "ok"
	})
	client := console.ready(t)

	tables, err := client.GetCrawlErrorTables(ctx)
	require.Error(t, err)
	require.Nil(t, tables)
	require.Contains(t, err.Error(), "mobile-operator-errors/timeout")
}

func TestRetrievalPreconditions(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	client := console.client(t)

	_, err := client.GetTableData(ctx, Table("TOP_SECRETS"))
	require.ErrorAs(t, err, &UnknownTableError{})

	_, err = client.GetTableData(ctx, TopQueries)
	var precondition PreconditionError
	require.ErrorAs(t, err, &precondition)
	require.Equal(t, "website", precondition.Field)

	_, err = client.GetCrawlErrorTables(ctx)
	require.ErrorAs(t, err, &precondition)

	require.NoError(t, client.Login(ctx, testIdentity, testSecret))
	_, err = client.SetWebsite(ctx, testWebsite)
	require.NoError(t, err)
	console.reset()

	_, err = client.GetTableData(ctx, TopQueries)
	require.ErrorAs(t, err, &precondition)
	require.Equal(t, "date range", precondition.Field)

	_, err = client.SetDateRange(DateRange{
		Start: mustDate(t, "2012-01-12"),
		End:   mustDate(t, "2012-01-10"),
	})
	require.ErrorIs(t, err, ErrInvalidDateRange)
	require.True(t, client.DateRange().IsZero())

	require.Empty(t, console.recorded())
}

func TestRetrievalRequiresSession(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	client := console.client(t)

	// state can be prepared offline, only website validation needs the console
	client.website = testWebsite
	dates, err := ParseDateRange("2012-01-10", "2012-01-12")
	require.NoError(t, err)
	_, err = client.SetDateRange(dates)
	require.NoError(t, err)

	_, err = client.GetTableData(ctx, TopPages)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	require.Empty(t, console.recorded())
}

func TestRetrievalCancelled(t *testing.T) {
	console := newFakeConsole(t)
	client := console.ready(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetTableData(ctx, TopPages)
	require.ErrorIs(t, err, context.Canceled)
}
