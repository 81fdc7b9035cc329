package webmaster

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSitesFeed(t *testing.T) {
	sites, err := ParseSitesFeed([]byte(testSitesFeed))
	require.NoError(t, err)
	require.Equal(t, map[string]Site{
		"http://example.com/":            {Name: "http://example.com/", Verified: true},
		"http://unverified.example.com/": {Name: "http://unverified.example.com/", Verified: false},
	}, sites)

	// a verified element outside of the webmaster tools namespace is ignored
	foreign := `<feed xmlns="http://www.w3.org/2005/Atom" xmlns:x="urn:other">
		<entry><title>http://other.example.com/</title><x:verified>true</x:verified></entry>
	</feed>`
	sites, err = ParseSitesFeed([]byte(foreign))
	require.NoError(t, err)
	require.False(t, sites["http://other.example.com/"].Verified)

	empty, err := ParseSitesFeed([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSitesCache(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	client := console.client(t)
	require.NoError(t, client.Login(ctx, testIdentity, testSecret))
	console.reset()

	_, err := client.Sites(ctx, false)
	require.NoError(t, err)
	_, err = client.Sites(ctx, false)
	require.NoError(t, err)
	require.Len(t, console.recorded(), 1)

	_, err = client.Sites(ctx, true)
	require.NoError(t, err)
	require.Len(t, console.recorded(), 2)

	// a failed reload drops the cache, the next call fetches again
	console.route(sitesFeedPath, func(url.Values) (int, string) {
		return http.StatusInternalServerError, ""
	})
	_, err = client.Sites(ctx, true)
	var status BadStatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusInternalServerError, status.Code)

	console.route(sitesFeedPath, ok(testSitesFeed))
	console.reset()
	sites, err := client.Sites(ctx, false)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	require.Len(t, console.recorded(), 1)
}

func TestSetWebsite(t *testing.T) {
	ctx := testContext(t)
	console := newFakeConsole(t)
	client := console.client(t)
	require.NoError(t, client.Login(ctx, testIdentity, testSecret))
	console.reset()

	_, err := client.SetWebsite(ctx, "http://missing.example.com/")
	require.ErrorIs(t, err, ErrSiteNotFound)
	require.Empty(t, client.Website())

	_, err = client.SetWebsite(ctx, "http://unverified.example.com/")
	require.ErrorIs(t, err, ErrSiteNotVerified)
	require.Empty(t, client.Website())

	_, err = client.SetWebsite(ctx, testWebsite)
	require.NoError(t, err)
	require.Equal(t, testWebsite, client.Website())

	self, err := client.SetWebsite(ctx, testWebsite)
	require.NoError(t, err)
	require.Same(t, client, self)
	require.Equal(t, testWebsite, client.Website())

	// the site feed is fetched once and cached for every later lookup
	require.Len(t, console.recorded(), 1)
}
