package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gwtdownloads/internal/components/chrono"
	"gwtdownloads/internal/components/configutil"
	"gwtdownloads/internal/components/serviceutil"
	"gwtdownloads/internal/components/telemetry"
	"gwtdownloads/internal/scrapers/webmaster"
)

const defaultConfigName = "gwt.json5"

type Config struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// defaults to https://www.google.com
	BaseUrl  string `json:"base_url"`
	Language string `json:"language"`
	Website  string `json:"website"`

	SavePath         string   `json:"save_path"`
	FilenameTemplate string   `json:"filename_template"`
	DateFormat       string   `json:"date_format"`
	Tables           []string `json:"tables"`
	DropColumns      []string `json:"drop_columns"`
	// used when no explicit range is given, the range ends yesterday
	DaysBack int `json:"days_back"`
	// a sqlite file or a libsql url
	Database string `json:"database"`
	Xlsx     bool   `json:"xlsx"`
	Schedule string `json:"schedule"`

	RequestsPerSecond  float64 `json:"requests_per_second"`
	CrawlConcurrency   int     `json:"crawl_concurrency"`
	InsecureSkipVerify bool    `json:"insecure_skip_verify"`
	// writes every http exchange to this directory for debugging
	DumpHttp string `json:"dump_http"`
	// auto, multipart or urlencoded
	LoginEncoding string `json:"login_encoding"`

	Telemetry telemetry.Config `json:"telemetry"`
}

const defaultDaysBack = 30

func loadConfig() Config {
	cfg, path, err := configutil.ReadFirst[Config](configPath)
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("failed to read config %s", configPath), err)
	}
	slog.Debug("loaded config", "path", path)
	return cfg
}

func parseLoginEncoding(value string) (webmaster.BodyEncoding, error) {
	switch strings.ToLower(value) {
	case "", "auto":
		return webmaster.EncodingAuto, nil
	case "multipart":
		return webmaster.EncodingMultipart, nil
	case "urlencoded", "url":
		return webmaster.EncodingURL, nil
	}
	return 0, fmt.Errorf("unknown login encoding %q", value)
}

func (c Config) clientOptions() (webmaster.ClientOptions, error) {
	encoding, err := parseLoginEncoding(c.LoginEncoding)
	if err != nil {
		return webmaster.ClientOptions{}, err
	}
	return webmaster.ClientOptions{
		Transport: webmaster.TransportOptions{
			BaseUrl:            c.BaseUrl,
			InsecureSkipVerify: c.InsecureSkipVerify,
			RequestsPerSecond:  c.RequestsPerSecond,
			DumpDir:            c.DumpHttp,
		},
		LoginEncoding:    encoding,
		CrawlConcurrency: c.CrawlConcurrency,
		Language:         c.Language,
	}, nil
}

// dateRange resolves --start/--end, falling back to the last DaysBack days
// ending yesterday.
func (c Config) dateRange(clock chrono.API, start, end string) (webmaster.DateRange, error) {
	if start != "" || end != "" {
		if start == "" || end == "" {
			return webmaster.DateRange{}, fmt.Errorf("--start and --end must be given together")
		}
		return webmaster.ParseDateRange(start, end)
	}
	daysBack := c.DaysBack
	if daysBack <= 0 {
		daysBack = defaultDaysBack
	}
	yesterday := chrono.Date(clock.Now()).AddDate(0, 0, -1)
	return webmaster.NewDateRange(yesterday.AddDate(0, 0, -(daysBack - 1)), yesterday)
}

// setupTelemetry installs the otel exporters from cfg and returns the api every
// component reports to.
func setupTelemetry(ctx context.Context, cfg Config) telemetry.API {
	providers, err := telemetry.Setup(ctx, "gwt-cli", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	otelProviders = providers

	metered, err := telemetry.NewMeteredAPI(telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("failed to create metrics", err)
	}
	return metered
}

// createClient logs in and, when website is not empty, selects it.
func createClient(ctx context.Context, cfg Config, tel telemetry.API, website string) (*webmaster.Client, error) {
	opts, err := cfg.clientOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loginCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	slog.Info("logging in", "email", cfg.Email)
	client, err := webmaster.Create(loginCtx, opts, tel, cfg.Email, cfg.Password)
	if err != nil {
		return nil, err
	}
	if website == "" {
		return client, nil
	}
	_, err = client.SetWebsite(loginCtx, website)
	if err != nil {
		return nil, fmt.Errorf("select website %s: %w", website, err)
	}
	return client, nil
}
