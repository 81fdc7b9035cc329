package webmaster

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	crawlErrorsEndpoint         = "crawl-errors"
	crawlErrorsDownloadEndpoint = "crawl-errors-dl"

	DefaultCrawlConcurrency = 4
)

type crawlErrorSort struct {
	id   string
	name string
}

type crawlErrorType struct {
	id   string
	name string
	// page id of the intermediate page that carries the token
	tid string
}

var crawlErrorSorts = []crawlErrorSort{
	{id: "0", name: "http"},
	{id: "1", name: "not-found"},
	{id: "2", name: "restricted-by-robotsTxt"},
	{id: "3", name: "unreachable"},
	{id: "4", name: "timeout"},
	{id: "5", name: "not-followed"},
	{id: "kAppErrorSoft-404s", name: "soft404"},
	{id: "sitemap", name: "in-sitemaps"},
}

var crawlErrorTypes = []crawlErrorType{
	{id: "0", name: "web-crawl-errors", tid: "we"},
	{id: "1", name: "mobile-wml-xhtml-errors", tid: "mx"},
	{id: "2", name: "mobile-chtml-errors", tid: "mc"},
	{id: "3", name: "mobile-operator-errors", tid: "we"},
	{id: "4", name: "news-crawl-errors", tid: "we"},
}

// CrawlErrorKey names one cell of the crawl errors grid.
type CrawlErrorKey struct {
	Sort string
	Type string
}

func (k CrawlErrorKey) String() string {
	return fmt.Sprintf("%s/%s", k.Type, k.Sort)
}

// CrawlErrorKeys lists every cell of the crawl errors grid, sorts first.
func CrawlErrorKeys() []CrawlErrorKey {
	keys := make([]CrawlErrorKey, 0, len(crawlErrorSorts)*len(crawlErrorTypes))
	for _, s := range crawlErrorSorts {
		for _, t := range crawlErrorTypes {
			keys = append(keys, CrawlErrorKey{Sort: s.name, Type: t.name})
		}
	}
	return keys
}

func (s strategy) crawlErrorsToken(ctx context.Context, state State, tid string) (string, error) {
	query := siteQuery(state)
	query.Set("tid", tid)
	page, err := s.transport.get(ctx, servicePath(crawlErrorsEndpoint, query))
	if err != nil {
		return "", fmt.Errorf("token page: %w", err)
	}
	token, err := extractToken(page, "", DelimiterX26)
	if err != nil {
		return "", fmt.Errorf("extract token (tid %s): %w", tid, err)
	}
	return token, nil
}

// crawlErrors downloads the merged crawl errors report.
func (s strategy) crawlErrors(ctx context.Context, state State) ([]byte, error) {
	token, err := s.crawlErrorsToken(ctx, state, "we")
	if err != nil {
		s.tel.ReportBroken(report_strategy_crawlErrors, err)
		return nil, err
	}

	query := siteQuery(state)
	query.Set("security_token", token)
	query.Set("type", "0")

	body, err := s.transport.get(ctx, servicePath(crawlErrorsDownloadEndpoint, query))
	if err != nil {
		s.tel.ReportBroken(report_strategy_crawlErrors, fmt.Errorf("download: %w", err))
		return nil, err
	}
	return body, nil
}

func (s strategy) crawlErrorCell(ctx context.Context, state State, sort crawlErrorSort, typ crawlErrorType) ([]byte, error) {
	token, err := s.crawlErrorsToken(ctx, state, typ.tid)
	if err != nil {
		return nil, err
	}

	query := siteQuery(state)
	query.Set("security_token", token)
	query.Set("type", typ.id)
	query.Set("sort", sort.id)

	body, err := s.transport.get(ctx, servicePath(crawlErrorsDownloadEndpoint, query))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return body, nil
}

// separatedCrawlErrors downloads every cell of the crawl errors grid with at
// most crawlConcurrency request chains in flight. The first failure cancels
// the remaining downloads.
func (s strategy) separatedCrawlErrors(ctx context.Context, state State) (map[CrawlErrorKey][]byte, error) {
	limit := s.crawlConcurrency
	if limit <= 0 {
		limit = DefaultCrawlConcurrency
	}

	var mu sync.Mutex
	out := make(map[CrawlErrorKey][]byte, len(crawlErrorSorts)*len(crawlErrorTypes))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	for _, sort := range crawlErrorSorts {
		sort := sort
		for _, typ := range crawlErrorTypes {
			typ := typ
			group.Go(func() error {
				key := CrawlErrorKey{Sort: sort.name, Type: typ.name}
				body, err := s.crawlErrorCell(groupCtx, state, sort, typ)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				mu.Lock()
				out[key] = body
				mu.Unlock()
				return nil
			})
		}
	}

	if err := group.Wait(); err != nil {
		s.tel.ReportBroken(report_strategy_crawlErrors, err)
		return nil, err
	}
	s.tel.ReportCount(report_strategy_crawlErrors, int64(len(out)))
	return out, nil
}
