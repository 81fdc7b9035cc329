// client.go holds the facade over the console: session, site registry,
// per-table retrieval and the processing chain.

package webmaster

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"gwtdownloads/internal/components/assert"
	"gwtdownloads/internal/components/telemetry"
)

const (
	report_client_login          = "client.login"
	report_client_set_website    = "client.set-website"
	report_client_get_table_data = "client.get-table-data"
)

const DefaultLanguage = "en"

type ClientOptions struct {
	Transport TransportOptions
	// defaults to EncodingAuto
	LoginEncoding BodyEncoding
	// defaults to DefaultCrawlConcurrency
	CrawlConcurrency int
	// defaults to DefaultLanguage
	Language string
}

type Client struct {
	tel       telemetry.API
	creds     *credentials
	transport *transport
	session   sessionManager
	sites     *siteRegistry
	strategy  strategy

	mu         sync.RWMutex
	website    string
	language   string
	dateRange  DateRange
	tables     []Table
	processors []Processor
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("webmaster", tel)

	creds := &credentials{}
	t, err := newTransport(opts.Transport, creds, tel)
	if err != nil {
		return nil, err
	}

	language := opts.Language
	if language == "" {
		language = DefaultLanguage
	}

	c := &Client{
		tel:       tel,
		creds:     creds,
		transport: t,
		session: sessionManager{
			transport: t,
			creds:     creds,
			encoding:  opts.LoginEncoding,
			tel:       tel,
		},
		sites: &siteRegistry{
			transport: t,
			tel:       tel,
		},
		strategy: strategy{
			transport:        t,
			tel:              tel,
			crawlConcurrency: opts.CrawlConcurrency,
		},
		language: language,
		tables:   AllTables(),
	}
	return c, nil
}

// Create builds a client and logs it in.
func Create(ctx context.Context, opts ClientOptions, tel telemetry.API, identity, secret string) (*Client, error) {
	c, err := NewClient(opts, tel)
	if err != nil {
		return nil, err
	}
	err = c.Login(ctx, identity, secret)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Login establishes a session, any previous credential is replaced on success.
func (c *Client) Login(ctx context.Context, identity, secret string) error {
	_, err := c.session.login(ctx, identity, secret)
	if err != nil {
		c.tel.ReportBroken(report_client_login, err)
		return err
	}
	return nil
}

func (c *Client) IsAuthenticated() bool {
	_, err := c.creds.get()
	return err == nil
}

// Sites lists the sites of the account, see siteRegistry.list.
func (c *Client) Sites(ctx context.Context, reload bool) (map[string]Site, error) {
	return c.sites.list(ctx, reload)
}

func (c *Client) SetLanguage(language string) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.language = language
	return c
}

func (c *Client) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// SetWebsite selects the site used by retrievals, the site must be part of the
// account and verified.
func (c *Client) SetWebsite(ctx context.Context, site string) (*Client, error) {
	sites, err := c.sites.list(ctx, false)
	if err != nil {
		c.tel.ReportBroken(report_client_set_website, fmt.Errorf("list sites: %w", err))
		return c, err
	}
	entry, ok := sites[site]
	if !ok {
		return c, fmt.Errorf("%w: %s", ErrSiteNotFound, site)
	}
	if !entry.Verified {
		return c, fmt.Errorf("%w: %s", ErrSiteNotVerified, site)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.website = site
	return c, nil
}

func (c *Client) Website() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.website
}

func (c *Client) SetDateRange(r DateRange) (*Client, error) {
	r, err := NewDateRange(r.Start, r.End)
	if err != nil {
		return c, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dateRange = r
	return c, nil
}

func (c *Client) DateRange() DateRange {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dateRange
}

// SetTables restricts bulk downloads to the known tables in names, unknown
// names are dropped.
func (c *Client) SetTables(names []string) *Client {
	tables := FilterTables(names)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = tables
	return c
}

func (c *Client) Tables() []Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tables)
}

// AddProcessor appends a processor to the end of the chain.
func (c *Client) AddProcessor(p Processor) *Client {
	assert.NotNil(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors = append(c.processors, p)
	return c
}

func (c *Client) Processors() []Processor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.processors)
}

func (c *Client) snapshot() (State, []Processor) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state := State{
		website:   c.website,
		language:  c.language,
		dateRange: c.dateRange,
	}
	return state, slices.Clone(c.processors)
}

func (c *Client) requireWebsite(state State) error {
	if state.website == "" {
		return PreconditionError{Field: "website"}
	}
	return nil
}

// GetTableData downloads a table for the current website and date range and
// runs it through the processing chain.
func (c *Client) GetTableData(ctx context.Context, table Table) (Payload, error) {
	state, processors := c.snapshot()

	if _, err := table.protocol(); err != nil {
		return Payload{}, err
	}
	if err := c.requireWebsite(state); err != nil {
		return Payload{}, err
	}
	if state.dateRange.IsZero() {
		return Payload{}, PreconditionError{Field: "date range"}
	}
	if _, err := c.creds.get(); err != nil {
		return Payload{}, err
	}

	body, err := c.strategy.fetch(ctx, state, table)
	if err != nil {
		return Payload{}, err
	}

	payload, err := runChain(ctx, processors, state, Payload{Table: table, Body: body})
	if err != nil {
		c.tel.ReportBroken(report_chain_process, fmt.Errorf("%s: %w", table, err))
		return Payload{}, err
	}
	c.tel.ReportDebug(report_client_get_table_data, table, len(body))
	return payload, nil
}

// GetCrawlErrorTables downloads every crawl errors report separately, keyed by
// sort and type. The processing chain is not applied.
func (c *Client) GetCrawlErrorTables(ctx context.Context) (map[CrawlErrorKey][]byte, error) {
	state, _ := c.snapshot()
	if err := c.requireWebsite(state); err != nil {
		return nil, err
	}
	if _, err := c.creds.get(); err != nil {
		return nil, err
	}
	return c.strategy.separatedCrawlErrors(ctx, state)
}
