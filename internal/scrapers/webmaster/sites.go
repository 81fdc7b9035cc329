package webmaster

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"gwtdownloads/internal/components/telemetry"

	"github.com/antchfx/xmlquery"
)

const report_sites_list = "sites.list"

const (
	sitesFeedPath       = serviceUri + "feeds/sites/"
	webmasterToolsXmlNs = "http://schemas.google.com/webmasters/tools/2007"
)

// Site is an entry of the account's site feed.
type Site struct {
	Name     string
	Verified bool
}

// ParseSitesFeed reads the entries of an atom sites feed.
func ParseSitesFeed(body []byte) (map[string]Site, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse sites feed: %w", err)
	}

	sites := map[string]Site{}
	for _, entry := range findElements(doc, "entry") {
		site := Site{}
		for child := entry.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xmlquery.ElementNode {
				continue
			}
			switch {
			case child.Data == "title":
				site.Name = strings.TrimSpace(child.InnerText())
			case child.Data == "verified" && child.NamespaceURI == webmasterToolsXmlNs:
				site.Verified = strings.TrimSpace(child.InnerText()) == "true"
			}
		}
		if site.Name == "" {
			continue
		}
		sites[site.Name] = site
	}
	return sites, nil
}

func findElements(node *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		if child.Data == name {
			out = append(out, child)
			continue
		}
		out = append(out, findElements(child, name)...)
	}
	return out
}

// siteRegistry caches the site feed of the logged in account.
type siteRegistry struct {
	transport *transport
	tel       telemetry.API

	mu    sync.RWMutex
	sites map[string]Site
}

func (r *siteRegistry) cached() (map[string]Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sites, r.sites != nil
}

// list returns the cached sites, fetching the feed when there is no cache or
// reload is set. A failed fetch leaves the cache empty.
func (r *siteRegistry) list(ctx context.Context, reload bool) (map[string]Site, error) {
	if !reload {
		if sites, ok := r.cached(); ok {
			return maps.Clone(sites), nil
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	body, err := r.transport.get(ctx, sitesFeedPath)
	if err != nil {
		r.sites = nil
		return nil, err
	}
	sites, err := ParseSitesFeed(body)
	if err != nil {
		r.sites = nil
		r.tel.ReportBroken(report_sites_list, err)
		return nil, err
	}
	r.tel.ReportCount(report_sites_list, int64(len(sites)))

	r.sites = sites
	return maps.Clone(sites), nil
}
