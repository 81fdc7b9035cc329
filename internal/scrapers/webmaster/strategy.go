package webmaster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"gwtdownloads/internal/components/telemetry"
)

const (
	report_strategy_direct      = "strategy.direct"
	report_strategy_tokenized   = "strategy.tokenized"
	report_strategy_crawlErrors = "strategy.crawl-errors"
)

const downloadsListEndpoint = "downloads-list"

// strategy fetches the raw body of a table using the protocol the table
// requires.
type strategy struct {
	transport *transport
	tel       telemetry.API
	// bound on in flight requests in separated crawl errors mode
	crawlConcurrency int
}

func siteQuery(state State) url.Values {
	return url.Values{
		"hl":      {state.language},
		"siteUrl": {state.website},
	}
}

func rangeQuery(query url.Values, r DateRange) {
	query.Set("prop", "ALL")
	query.Set("db", r.StartCompact())
	query.Set("de", r.EndCompact())
	query.Set("more", "true")
}

func (s strategy) fetch(ctx context.Context, state State, table Table) ([]byte, error) {
	proto, err := table.protocol()
	if err != nil {
		return nil, err
	}
	switch proto {
	case protocolDirect:
		return s.direct(ctx, state, table)
	case protocolTokenized:
		return s.tokenized(ctx, state, table)
	case protocolCrawlErrors:
		return s.crawlErrors(ctx, state)
	}
	return nil, UnknownTableError{Table: string(table)}
}

// downloadLinks fetches the json map of table name to download url.
func (s strategy) downloadLinks(ctx context.Context, state State) (map[string]string, error) {
	body, err := s.transport.get(ctx, servicePath(downloadsListEndpoint, siteQuery(state)))
	if err != nil {
		return nil, err
	}
	links := map[string]string{}
	err = json.Unmarshal(body, &links)
	if err != nil {
		if isLoginPage(body) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("decode downloads list: %w", err)
	}
	return links, nil
}

func (s strategy) direct(ctx context.Context, state State, table Table) ([]byte, error) {
	links, err := s.downloadLinks(ctx, state)
	if err != nil {
		s.tel.ReportBroken(report_strategy_direct, fmt.Errorf("downloads list: %w", err))
		return nil, err
	}

	link, ok := links[string(table)]
	if !ok || link == "" {
		err := fmt.Errorf("%w: %s", ErrDownloadURLNotFound, table)
		s.tel.ReportBroken(report_strategy_direct, err)
		return nil, err
	}

	target, err := url.Parse(link)
	if err != nil {
		s.tel.ReportBroken(report_strategy_direct, fmt.Errorf("parse download url: %w", err))
		return nil, err
	}
	query := target.Query()
	rangeQuery(query, state.dateRange)
	target.RawQuery = query.Encode()

	body, err := s.transport.get(ctx, target.String())
	if err != nil {
		s.tel.ReportBroken(report_strategy_direct, fmt.Errorf("download: %w", err))
		return nil, err
	}
	return body, nil
}

func (s strategy) tokenized(ctx context.Context, state State, table Table) ([]byte, error) {
	desc := tableDescriptors[table]

	page, err := s.transport.get(ctx, servicePath(desc.tokenPath, siteQuery(state)))
	if err != nil {
		s.tel.ReportBroken(report_strategy_tokenized, fmt.Errorf("token page: %w", err))
		return nil, err
	}
	token, err := extractToken(page, desc.downloadPath, desc.delimiter)
	if err != nil {
		s.tel.ReportBroken(report_strategy_tokenized, fmt.Errorf("extract token (%s): %w", table, err))
		return nil, err
	}

	query := siteQuery(state)
	query.Set("security_token", token)
	rangeQuery(query, state.dateRange)

	body, err := s.transport.get(ctx, servicePath(desc.downloadPath, query))
	if err != nil {
		s.tel.ReportBroken(report_strategy_tokenized, fmt.Errorf("download: %w", err))
		return nil, err
	}
	return body, nil
}
