package processors

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gwtdownloads/internal/components/chrono"
	"gwtdownloads/internal/scrapers/webmaster"
)

const (
	DefaultTemplate   = "{website}-{tableName}-{dateStart}-{dateEnd}.csv"
	DefaultDateFormat = "Ymd"
	DefaultSavePath   = "."
)

// TemplateError is returned when a filename template still contains a
// placeholder after substitution.
type TemplateError struct {
	Template    string
	Placeholder string
}

func (e TemplateError) Error() string {
	return fmt.Sprintf("processors: unresolved placeholder %s in template %q", e.Placeholder, e.Template)
}

var placeholderRegex = regexp.MustCompile(`\{[^}]*\}`)

// phpDateLetters maps the date() format letters used by the original download
// scripts onto go layout elements.
var phpDateLetters = map[rune]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'n': "1",
	'd': "02",
	'j': "2",
	'H': "15",
	'G': "15",
	'i': "04",
	's': "05",
}

// dateLayout accepts either a go layout (anything containing 2006) or a php
// style format like Ymd or Y-m-d.
func dateLayout(format string) string {
	if format == "" {
		format = DefaultDateFormat
	}
	if strings.Contains(format, "2006") {
		return format
	}
	var layout strings.Builder
	for _, r := range format {
		if elem, ok := phpDateLetters[r]; ok {
			layout.WriteString(elem)
			continue
		}
		layout.WriteRune(r)
	}
	return layout.String()
}

func websiteHost(site string) string {
	parsed, err := url.Parse(site)
	if err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return strings.Trim(strings.NewReplacer("://", "-", "/", "-").Replace(site), "-")
}

// fileTemplate resolves output paths for a payload.
type fileTemplate struct {
	SavePath   string
	Template   string
	DateFormat string
	Clock      chrono.API
}

func (t fileTemplate) now() time.Time {
	if t.Clock == nil {
		return chrono.NewStandardImpl().Now()
	}
	return t.Clock.Now()
}

// resolve substitutes every placeholder and joins the result onto SavePath.
func (t fileTemplate) resolve(state webmaster.State, table webmaster.Table) (string, error) {
	template := t.Template
	if template == "" {
		template = DefaultTemplate
	}
	layout := dateLayout(t.DateFormat)
	dates := state.DateRange()

	name := strings.NewReplacer(
		"{website}", websiteHost(state.Website()),
		"{tableName}", string(table),
		"{dateStart}", dates.Start.Format(layout),
		"{dateEnd}", dates.End.Format(layout),
		"{date}", t.now().Format(layout),
	).Replace(template)

	if leftover := placeholderRegex.FindString(name); leftover != "" {
		return "", TemplateError{Template: template, Placeholder: leftover}
	}

	savePath := t.SavePath
	if savePath == "" {
		savePath = DefaultSavePath
	}
	return filepath.Join(savePath, filepath.FromSlash(name)), nil
}

// FileWriter saves each payload to a file named by Template and sets the
// payload path. An empty export ends the chain without writing a file.
//
// Supported placeholders: {website} (host of the site url), {tableName},
// {dateStart}, {dateEnd} and {date} (time of writing), dates are rendered with
// DateFormat.
type FileWriter struct {
	SavePath   string
	Template   string
	DateFormat string
	Clock      chrono.API
}

func (w FileWriter) template() fileTemplate {
	return fileTemplate(w)
}

// Filename returns the path a payload of table would be written to.
func (w FileWriter) Filename(state webmaster.State, table webmaster.Table) (string, error) {
	return w.template().resolve(state, table)
}

func payloadData(p webmaster.Payload) ([]byte, error) {
	if len(p.Body) > 0 {
		return p.Body, nil
	}
	if p.Rows != nil {
		return EncodeRows(p.Rows)
	}
	return nil, nil
}

func (w FileWriter) Process(_ context.Context, state webmaster.State, p webmaster.Payload) (webmaster.Payload, error) {
	path, err := w.Filename(state, p.Table)
	if err != nil {
		return webmaster.Payload{}, err
	}

	data, err := payloadData(p)
	if err != nil {
		return webmaster.Payload{}, err
	}
	// a single byte is what the console returns for an empty export
	if len(data) <= 1 {
		return webmaster.Payload{}, nil
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return webmaster.Payload{}, fmt.Errorf("create directory: %w", err)
	}
	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return webmaster.Payload{}, fmt.Errorf("write %s: %w", path, err)
	}

	p.Path = path
	return p, nil
}
