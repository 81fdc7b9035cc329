package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gwtdownloads/internal/components/chrono"
	"gwtdownloads/internal/components/configutil"
	"gwtdownloads/internal/components/serviceutil"
	"gwtdownloads/internal/components/telemetry"
	"gwtdownloads/internal/scrapers/webmaster"
	"gwtdownloads/internal/scrapers/webmaster/processors"
	"gwtdownloads/internal/scrapers/webmaster/processors/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type downloadFlags struct {
	site                 string
	tables               []string
	start                string
	end                  string
	out                  string
	separatedCrawlErrors bool
	database             string
	xlsx                 bool
	summary              string
}

var download downloadFlags

func init() {
	flags := downloadCmd.Flags()
	flags.StringVar(&download.site, "site", "", "The site to download, defaults to the website in the config.")
	flags.StringSliceVar(&download.tables, "table", nil, "Tables to download (ex. TOP_QUERIES or topqueries), defaults to the tables in the config or every table.")
	flags.StringVar(&download.start, "start", "", "First day of the range (YYYY-MM-DD).")
	flags.StringVar(&download.end, "end", "", "Last day of the range (YYYY-MM-DD).")
	flags.StringVar(&download.out, "out", "", "The directory reports are written to.")
	flags.BoolVar(&download.separatedCrawlErrors, "separated-crawl-errors", false, "Also download every crawl errors report separately.")
	flags.StringVar(&download.database, "sqlite", "", "Also store rows in this sqlite file or libsql url.")
	flags.BoolVar(&download.xlsx, "xlsx", false, "Also write every table as an xlsx workbook.")
	flags.StringVar(&download.summary, "summary", "", "Write a markdown summary of the run to this file.")
	rootCmd.AddCommand(downloadCmd)
}

// job is a configured download that can run more than once.
type job struct {
	cfg      Config
	flags    downloadFlags
	tel      telemetry.API
	clock    chrono.API
	savePath string
	website  string
	tables   []string
	database string
}

func newJob(cfg Config, flags downloadFlags, tel telemetry.API) job {
	j := job{
		cfg:      cfg,
		flags:    flags,
		tel:      tel,
		clock:    chrono.NewStandardImpl(),
		savePath: flags.out,
		website:  flags.site,
		tables:   flags.tables,
		database: flags.database,
	}
	if j.savePath == "" {
		j.savePath = cfg.SavePath
	}
	if j.savePath == "" {
		j.savePath = configutil.DataDir()
	}
	if j.website == "" {
		j.website = cfg.Website
	}
	if len(j.tables) == 0 {
		j.tables = cfg.Tables
	}
	if j.database == "" {
		j.database = cfg.Database
	}
	return j
}

func (j job) processors(conn *sql.DB) []webmaster.Processor {
	chain := []webmaster.Processor{processors.RowMaterializer{}}
	if len(j.cfg.DropColumns) > 0 {
		chain = append(chain, processors.ColumnFilter{Names: j.cfg.DropColumns})
	}
	chain = append(chain, processors.FileWriter{
		SavePath:   j.savePath,
		Template:   j.cfg.FilenameTemplate,
		DateFormat: j.cfg.DateFormat,
		Clock:      j.clock,
	})
	if j.flags.xlsx || j.cfg.Xlsx {
		chain = append(chain, processors.XlsxWriter{
			SavePath:   j.savePath,
			DateFormat: j.cfg.DateFormat,
			Clock:      j.clock,
		})
	}
	if conn != nil {
		chain = append(chain, processors.SqliteSink{DB: conn, Clock: j.clock})
	}
	return chain
}

// run logs in, downloads every table and returns the report.
func (j job) run(ctx context.Context) (webmaster.DownloadReport, error) {
	if j.website == "" {
		return webmaster.DownloadReport{}, fmt.Errorf("no site given, set --site or website in the config")
	}
	dates, err := j.cfg.dateRange(j.clock, j.flags.start, j.flags.end)
	if err != nil {
		return webmaster.DownloadReport{}, err
	}

	client, err := createClient(ctx, j.cfg, j.tel, j.website)
	if err != nil {
		return webmaster.DownloadReport{}, err
	}
	_, err = client.SetDateRange(dates)
	if err != nil {
		return webmaster.DownloadReport{}, err
	}
	if len(j.tables) > 0 {
		client.SetTables(j.tables)
	}

	var conn *sql.DB
	if j.database != "" {
		conn, err = db.Open(ctx, j.database)
		if err != nil {
			return webmaster.DownloadReport{}, err
		}
		defer conn.Close()
	}

	for _, p := range j.processors(conn) {
		client.AddProcessor(p)
	}

	slog.Info(
		"downloading",
		"site", j.website,
		"start", dates.StartCompact(),
		"end", dates.EndCompact(),
		"tables", len(client.Tables()),
	)
	report, err := client.DownloadAll(ctx)
	if err != nil {
		return report, err
	}

	if j.flags.separatedCrawlErrors && slices.Contains(client.Tables(), webmaster.CrawlErrors) {
		err = j.downloadCrawlErrors(ctx, client)
		if err != nil {
			report.Failed = append(report.Failed, webmaster.FailedTable{Table: webmaster.CrawlErrors, Err: err})
		}
	}
	return report, nil
}

func (j job) downloadCrawlErrors(ctx context.Context, client *webmaster.Client) error {
	tables, err := client.GetCrawlErrorTables(ctx)
	if err != nil {
		return err
	}
	state := webmaster.NewState(client.Website(), client.Language(), client.DateRange())

	var errs []error
	for _, key := range webmaster.CrawlErrorKeys() {
		writer := processors.FileWriter{
			SavePath:   j.savePath,
			Template:   fmt.Sprintf("{website}-crawl-errors/%s/%s-{dateStart}-{dateEnd}.csv", key.Type, key.Sort),
			DateFormat: j.cfg.DateFormat,
			Clock:      j.clock,
		}
		out, err := writer.Process(ctx, state, webmaster.Payload{Table: webmaster.CrawlErrors, Body: tables[key]})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		if out.IsEmpty() {
			slog.Debug("empty crawl errors report", "report", key.String())
		}
	}
	return errors.Join(errs...)
}

func reportTable(report webmaster.DownloadReport) table.Writer {
	t := newTable()
	t.SetTitle(fmt.Sprintf("run %s", report.RunID))
	t.AppendHeader(table.Row{"Table", "Status", "Path", "Bytes", "Records"})
	for _, d := range report.Downloaded {
		t.AppendRow(table.Row{d.Table, "ok", d.Path, d.Size, d.Records})
	}
	for _, skipped := range report.Skipped {
		t.AppendRow(table.Row{skipped, "empty", "", "", ""})
	}
	for _, f := range report.Failed {
		t.AppendRow(table.Row{f.Table, "failed", f.Err.Error(), "", ""})
	}
	return t
}

func writeSummary(path string, report webmaster.DownloadReport) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	t := reportTable(report)
	t.SetOutputMirror(nil)
	return os.WriteFile(path, []byte(t.RenderMarkdown()+"\n"), 0o644)
}

func runDownload(ctx context.Context, j job) error {
	report, err := j.run(ctx)
	if report.RunID != "" {
		reportTable(report).Render()
	}
	if err != nil {
		return err
	}
	if j.flags.summary != "" {
		err = writeSummary(j.flags.summary, report)
		if err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if len(report.Failed) > 0 {
		total := len(report.Failed) + len(report.Skipped) + len(report.Downloaded)
		return fmt.Errorf("%d of %d tables failed", len(report.Failed), total)
	}
	return nil
}

var downloadCmd = &cobra.Command{
	Use:   "download [--site <url>] [--table <name>...] [--start <date> --end <date>] [--out <dir>]",
	Short: "Downloads report tables of a site to files.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()
		tel := setupTelemetry(ctx, cfg)

		err := runDownload(ctx, newJob(cfg, download, tel))
		if err != nil {
			serviceutil.Fatal("download failed", err)
		}
	},
}
