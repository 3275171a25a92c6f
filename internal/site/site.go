// © 2025 SESIM-KNTLU. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package site builds the LMSM registration dashboard.

The generated site is fully static: the dashboard page carries the aggregated
registration data as embedded JSON, and the charts and tables are rendered in
the browser by static/js/dashboard.js.

# Directory Structure

The source tree has the following directories:

	build      This is where the generated site will be placed by default.
	pages      Auxiliary content, e.g. the about page. HTML and Markdown
	           formats can be used.
	static     Files in this directory will be copied verbatim to the
	           generated site.
	templates  These are the templates that wrap pages. Templates are
	           chosen on a page-by-page basis in the front matter.
	           They must have the '.html' extension.

The dashboard page itself is not read from pages: it is rendered from an
embedded template and the summary passed to [Build].

# Page Layout

Each auxiliary page must be of the supported format (HTML or Markdown) and
have JSON front matter in the beginning:

	{
	  "title": "Kona-ba",
	  "template": "layout",
	  "permalink": "/kona-ba"
	}

See Page for all available front matter fields.
*/
package site

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	ttemplate "text/template"
	"time"

	"github.com/sesimkntlu/lmsm-dashboard/internal/report"

	"go.astrophena.name/base/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/feeds"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	mjson "github.com/tdewolff/minify/v2/json"
	"rsc.io/markdown"
)

// Possible errors, used in tests.
var (
	errFrontmatterSplit        = errors.New("failed to split frontmatter and contents")
	errFrontmatterParse        = errors.New("failed to parse frontmatter")
	errFrontmatterMissing      = errors.New("missing frontmatter")
	errFrontmatterMissingParam = errors.New("missing required frontmatter parameter (title, template, permalink)")
	errFormatUnsupported       = errors.New("format unsupported")
	errPermalinkInvalid        = errors.New("invalid permalink")
	errNoLayout                = errors.New("no such template")
)

// dashboardTmpl renders the contents of the dashboard page. The summary is
// embedded into it as JSON.
//
//go:embed dashboard.html
var dashboardTmpl string

// Config represents a build configuration.
type Config struct {
	// Title is the title of the dashboard.
	Title string
	// Author is the organization publishing the dashboard.
	Author string
	// BaseURL is the base URL of the site.
	BaseURL *url.URL
	// Src is the directory where to read files from. If empty, uses the
	// current directory.
	Src string
	// Dst is the directory where to write files. If empty, uses the build
	// directory.
	Dst string
	// Prod determines if the site should be built in a production mode. This
	// means that drafts are excluded and the base URL is used to derive
	// absolute URLs from relative ones.
	Prod bool
	// SkipFeed determines if the registrations feed shouldn't be built.
	SkipFeed bool
	// FeedItems is how many of the latest registrations the feed carries.
	// If zero, 20 is used.
	FeedItems int
	// BackgroundImage is an optional URL of a background image for the
	// dashboard page.
	BackgroundImage string

	feedCreated time.Time // used in tests
}

func (c *Config) setDefaults() {
	if c.Title == "" {
		c.Title = "Relatóriu Atuál Progresu Rejistrasaun Selebrasaun LMSM 2025"
	}
	if c.Author == "" {
		c.Author = "SESIM-KNTLU"
	}
	if c.BaseURL == nil {
		c.BaseURL = &url.URL{
			Scheme: "https",
			Host:   "sesimkntlu.github.io",
			Path:   "/lmsm-dashboard",
		}
	}
	if c.Src == "" {
		c.Src = filepath.Join(".")
	}
	if c.Dst == "" {
		c.Dst = filepath.Join(".", "build")
	}
	if c.FeedItems == 0 {
		c.FeedItems = 20
	}
}

// Build builds the dashboard site from the provided [Config] and registration
// summary.
func Build(c *Config, summary *report.Summary) error {
	c.setDefaults()
	b := newBuildContext(c)

	// Parse templates and auxiliary pages.
	if err := filepath.WalkDir(filepath.Join(b.c.Src, "templates"), b.parseTemplates); err != nil {
		return err
	}
	if err := filepath.WalkDir(filepath.Join(b.c.Src, "pages"), b.parsePages); err != nil {
		return err
	}

	// Render the dashboard page from the summary and make it the index.
	dp, err := b.dashboardPage(summary)
	if err != nil {
		return err
	}
	b.pages = append([]*Page{dp}, b.pages...)

	// Hash static files.
	if err := filepath.WalkDir(filepath.Join(b.c.Src, "static"), b.hashStatic); err != nil {
		return err
	}

	// Clean up after previous build.
	if _, err := os.Stat(b.c.Dst); err == nil {
		if err := os.RemoveAll(b.c.Dst); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(b.c.Dst, 0o755); err != nil {
		return err
	}

	// Build pages.
	for _, p := range b.pages {
		if err := os.MkdirAll(filepath.Dir(filepath.Join(b.c.Dst, p.dstPath)), 0o755); err != nil {
			return err
		}

		f, err := os.Create(filepath.Join(b.c.Dst, p.dstPath))
		if err != nil {
			return err
		}

		tpl, ok := b.templates[p.Template]
		if !ok {
			f.Close()
			return fmt.Errorf("%s: %w %q", p.path, errNoLayout, p.Template)
		}
		err = p.build(b, tpl, f)
		f.Close()
		if err != nil {
			return err
		}
	}

	// Build the registrations feed.
	if !b.c.SkipFeed {
		if err := b.buildFeed(summary.Entries); err != nil {
			return err
		}
	}

	// Write robots.txt.
	if err := os.WriteFile(filepath.Join(b.c.Dst, "robots.txt"), []byte(robotsTxt), 0o644); err != nil {
		return err
	}
	// Copy static files.
	return filepath.WalkDir(filepath.Join(b.c.Src, "static"), b.copyStatic)
}

const robotsTxt = `User-agent: *
`

type min struct {
	m *minify.M
}

func newMin() *min {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags:    true,
		KeepDefaultAttrVals: true,
		KeepEndTags:         true,
	})
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("application/json", mjson.Minify)

	return &min{m: m}
}

func (m *min) Bytes(mediaType string, b []byte) ([]byte, error) {
	return m.m.Bytes(mediaType, b)
}

type buildContext struct {
	c         *Config
	md        *markdown.Parser
	funcs     template.FuncMap
	pages     []*Page
	templates map[string]*template.Template
	static    map[string]string // path -> hashed path (e.g. /css/main.css -> /css/main-[hash].css)
	min       *min
}

func newBuildContext(c *Config) *buildContext {
	b := &buildContext{
		c: c,
		md: &markdown.Parser{
			HeadingID:          true,
			Strikethrough:      true,
			TaskList:           true,
			AutoLinkText:       true,
			AutoLinkAssumeHTTP: true,
			Table:              true,
			Emoji:              true,
			SmartDot:           true,
			SmartDash:          true,
			SmartQuote:         true,
		},
		templates: make(map[string]*template.Template),
		static:    make(map[string]string),
		min:       newMin(),
	}

	b.funcs = template.FuncMap{
		"author":  func() string { return b.c.Author },
		"content": func(p *Page) template.HTML { return template.HTML(p.contents) },
		"navLink": b.navLink,
		"pages":   b.pagesByType,
		"static":  b.getStatic,
		"time":    b.time,
		"title":   func() string { return b.c.Title },
		"url":     b.url,
	}

	return b
}

func (b *buildContext) navLink(p *Page, title, target string) template.HTML {
	var add string
	if p.Permalink == target {
		add = ` class="current"`
	}
	return template.HTML(fmt.Sprintf(`<a href="%s"%s>%s</a>`, b.url(target), add, title))
}

func (b *buildContext) pagesByType(typ string) []*Page {
	if typ == "" {
		return b.pages
	}
	var pages []*Page
	for _, p := range b.pages {
		if p.Type == typ {
			pages = append(pages, p)
		}
	}
	return pages
}

func (b *buildContext) time(format string, d *date) template.HTML {
	return template.HTML(fmt.Sprintf(`<date datetime="%s">%s</date>`,
		d.Format(time.RFC3339),
		d.Format(format),
	))
}

func isFullURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (b *buildContext) url(base string) string {
	if isFullURL(base) || !b.c.Prod || b.c.BaseURL == nil {
		return base
	}
	u := *b.c.BaseURL
	u.Path = path.Join(u.Path, base)
	return u.String()
}

func (b *buildContext) getStatic(base string) string {
	hashed, ok := b.static[base]
	if !ok {
		return b.url(base)
	}
	return b.url(hashed)
}

// dashboardPage renders the embedded dashboard template with the summary and
// wraps the result into a synthetic index page.
func (b *buildContext) dashboardPage(summary *report.Summary) (*Page, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	tpl, err := ttemplate.New("dashboard").Funcs(ttemplate.FuncMap{
		"static": b.getStatic,
	}).Parse(dashboardTmpl)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, struct {
		Title         string
		Author        string
		Data          string
		BackgroundCSS string
	}{
		Title:         b.c.Title,
		Author:        b.c.Author,
		Data:          string(data),
		BackgroundCSS: backgroundCSS(b.c.BackgroundImage),
	}); err != nil {
		return nil, err
	}

	return &Page{
		Title:     b.c.Title,
		Template:  "layout",
		Permalink: "/",
		Type:      "dashboard",
		JS:        []string{"/js/dashboard.js"},
		path:      "dashboard.html",
		dstPath:   "index.html",
		contents:  buf.Bytes(),
		raw:       true,
	}, nil
}

// backgroundCSS returns CSS that puts the image behind the dashboard and
// makes the panels translucent so it shows through.
func backgroundCSS(imageURL string) string {
	if imageURL == "" {
		return ""
	}
	return fmt.Sprintf(`body {
  background-image: url('%s');
  background-size: cover;
  background-repeat: no-repeat;
  background-position: center center;
  background-attachment: fixed;
}
.card, .panel {
  background-color: rgba(255, 255, 255, 0.9);
}`, imageURL)
}

func (b *buildContext) parseTemplates(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}

	if d.IsDir() {
		return nil
	}

	if filepath.Ext(path) != ".html" {
		return nil
	}

	name, err := filepath.Rel(filepath.Join(b.c.Src, "templates"), path)
	if err != nil {
		return err
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	// Ensure that we have slash-separated path everywhere.
	name = filepath.ToSlash(name)

	bb, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	b.templates[name], err = template.New(name).Funcs(b.funcs).Parse(string(bb))
	if err != nil {
		return err
	}

	return nil
}

func (b *buildContext) parsePages(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}

	if d.IsDir() || isIgnorable(path) {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	p := &Page{path: path}
	if err := p.parse(f); err != nil {
		return err
	}
	if !p.Draft || !b.c.Prod {
		b.pages = append(b.pages, p)
	}

	return nil
}

var skipHashing = []string{
	"robots.txt",
}

func (b *buildContext) hashStatic(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}

	if d.IsDir() || isIgnorable(path) {
		return nil
	}

	for _, skip := range skipHashing {
		if strings.Contains(path, skip) {
			return nil
		}
	}

	rel, err := filepath.Rel(filepath.Join(b.c.Src, "static"), path)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)

	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	hash := sha256.Sum256(buf)
	hashhex := hex.EncodeToString(hash[:])
	b.static["/"+rel] = "/" + formatStaticName(rel, hashhex)

	return nil
}

// formatStaticName returns a hash name that inserts hash before the
// filename's extension. If no extension exists on filename then the hash is
// appended.
func formatStaticName(filename, hash string) string {
	if filename == "" {
		return ""
	} else if hash == "" {
		return filename
	}

	dir, base := path.Split(filename)
	if i := strings.Index(base, "."); i != -1 {
		return path.Join(dir, fmt.Sprintf("%s-%s%s", base[:i], hash, base[i:]))
	}
	return path.Join(dir, fmt.Sprintf("%s-%s", base, hash))
}

func (b *buildContext) copyStatic(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return err
	}

	if d.IsDir() || isIgnorable(path) {
		return nil
	}

	rel, err := filepath.Rel(filepath.Join(b.c.Src, "static"), path)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)

	hashed, ok := b.static["/"+rel]
	if !ok {
		hashed = "/" + rel
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var mediaType string
	switch filepath.Ext(path) {
	case ".css":
		mediaType = "text/css"
	case ".js":
		mediaType = "application/javascript"
	case ".json":
		mediaType = "application/json"
	}
	if mediaType != "" {
		minified, err := b.min.Bytes(mediaType, buf)
		if err != nil {
			return err
		}
		buf = minified
	}

	dst := filepath.Join(b.c.Dst, filepath.FromSlash(hashed))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, buf, 0o644)
}

func isIgnorable(path string) bool {
	// Ignore files that look like Vim backups.
	if strings.HasSuffix(path, "~") {
		return true
	}

	// Ignore .gitignore files.
	if strings.Contains(path, ".gitignore") {
		return true
	}

	return false
}

// Page represents a site page. The exported fields is the front matter
// fields.
type Page struct {
	Title     string            `json:"title"`               // title: Page title, required.
	Permalink string            `json:"permalink"`           // permalink: Output path for the page, required.
	Template  string            `json:"template"`            // template: Template that should be used for rendering this page, required.
	Date      *date             `json:"date,omitempty"`      // date: Publication date in the 'year-month-day' format, e.g. 2006-01-02, optional.
	Draft     bool              `json:"draft,omitempty"`     // draft: Determines whether this page should be not included in production builds, false by default.
	MetaTags  map[string]string `json:"meta_tags,omitempty"` // meta_tags: Determines additional HTML meta tags that will be added to this page, optional.
	Summary   string            `json:"summary,omitempty"`   // summary: Page summary, optional.
	Type      string            `json:"type,omitempty"`      // type: Used to distinguish different kinds of pages, page by default.
	CSS       []string          `json:"css,omitempty"`       // css: Additional CSS files that should be loaded, optional.
	JS        []string          `json:"js,omitempty"`        // js: Additional JavaScript files that should be loaded, optional.

	path     string // path to the page source
	dstPath  string // where to write the built page
	contents []byte // page contents without front matter
	raw      bool   // don't treat contents as a template (set for the generated dashboard page)
}

type date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d *date) UnmarshalJSON(p []byte) error {
	s := strings.Trim(string(p), "\"")
	if s == "null" {
		d.Time = time.Time{}
		return nil
	}

	dt, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = dt

	return nil
}

func (p *Page) parse(r io.Reader) error {
	if !slices.Contains([]string{".html", ".md"}, filepath.Ext(p.path)) {
		return fmt.Errorf("%s: %w", p.path, errFormatUnsupported)
	}

	const (
		leftDelim  = "{\n"
		rightDelim = "}\n"
	)

	// Split the front matter and contents.
	scanner := bufio.NewScanner(r)
	var (
		frontmatter, contents []byte
		reachedFrontmatter    bool
		reachedContents       bool
	)
	for scanner.Scan() {
		line := scanner.Text() + "\n"

		if !reachedContents {
			if line == leftDelim {
				reachedFrontmatter = true
			}

			if line == rightDelim {
				reachedFrontmatter = false
				frontmatter = append(frontmatter, line...)
				reachedContents = true
				continue
			}
		}

		if reachedFrontmatter {
			frontmatter = append(frontmatter, line...)
			continue
		}

		if reachedContents {
			contents = append(contents, line...)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%s: %w: %v", p.path, errFrontmatterSplit, err)
	}
	if len(frontmatter) == 0 {
		return fmt.Errorf("%s: %w", p.path, errFrontmatterMissing)
	}
	p.contents = contents

	// Parse the front matter.
	if err := json.Unmarshal(frontmatter, p); err != nil {
		return fmt.Errorf("%s: %w: %v", p.path, errFrontmatterParse, err)
	}
	// Set the default page type.
	if p.Type == "" {
		p.Type = "page"
	}

	// Check front matter fields.
	if p.Title == "" || p.Template == "" || p.Permalink == "" {
		return fmt.Errorf("%s: %w", p.path, errFrontmatterMissingParam)
	}
	if _, err := url.ParseRequestURI(p.Permalink); err != nil {
		return fmt.Errorf("%s: %w: %v", p.path, errPermalinkInvalid, err)
	}
	p.dstPath = p.Permalink
	if !strings.HasSuffix(p.dstPath, ".html") {
		if p.dstPath == "/" {
			p.dstPath = p.dstPath + "index"
		}
		p.dstPath = p.dstPath + ".html"
	}
	p.dstPath = path.Clean(p.dstPath)

	return nil
}

func (p *Page) build(b *buildContext, tpl *template.Template, w io.Writer) error {
	// The generated dashboard page carries sheet-derived JSON that may
	// contain anything, so it is never treated as a template itself.
	if !p.raw {
		// We use here text/template, but not html/template because we don't
		// want to escape any HTML on the Markdown source.
		ptpl, err := ttemplate.New(p.path).Funcs(ttemplate.FuncMap(b.funcs)).Parse(string(p.contents))
		if err != nil {
			return err
		}
		var pbuf bytes.Buffer
		if err = ptpl.Execute(&pbuf, p); err != nil {
			return fmt.Errorf("%s: failed to execute page template: %w", p.path, err)
		}
		p.contents = pbuf.Bytes()
	}

	if filepath.Ext(p.path) == ".md" {
		doc := b.md.Parse(string(p.contents))
		p.contents = []byte(markdown.ToHTML(doc))
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, p); err != nil {
		return fmt.Errorf("%s: failed to execute template %q: %w", p.path, p.Template, err)
	}

	minified, err := b.min.Bytes("text/html", buf.Bytes())
	if err != nil {
		return err
	}

	_, err = w.Write(minified)
	return err
}

// buildFeed writes an Atom feed of the most recent registrations.
func (b *buildContext) buildFeed(entries []report.Entry) error {
	feed := &feeds.Feed{
		Title:   b.c.Title,
		Link:    &feeds.Link{Href: b.c.BaseURL.String() + "/"},
		Author:  &feeds.Author{Name: b.c.Author},
		Created: time.Now(),
	}

	if !b.c.feedCreated.IsZero() {
		feed.Created = b.c.feedCreated
	}

	// Latest first. Entries with unparsable timestamps keep their sheet
	// order, after the dated ones.
	sorted := slices.Clone(entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.After(sorted[j].Time)
	})
	if len(sorted) > b.c.FeedItems {
		sorted = sorted[:b.c.FeedItems]
	}

	for _, e := range sorted {
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       fmt.Sprintf("%s — %s", e.Topic, e.SchoolName),
			Link:        &feeds.Link{Href: b.c.BaseURL.String() + "/"},
			Author:      feed.Author,
			Description: fmt.Sprintf("%s, %s (%s)", e.Discipline, e.Municipality, e.SchoolLevel),
			Created:     e.Time,
		})
	}

	bf, err := feed.ToAtom()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(b.c.Dst, "feed.xml"), []byte(bf), 0o644)
}

// Source produces a fresh registration summary, usually by fetching the
// sheet.
type Source func(ctx context.Context) (*report.Summary, error)

var serveReadyHook func() // used in tests, called when Serve started serving the site

// debouncer delays execution of a function until a specified duration has
// passed without any new events.
type debouncer struct {
	d  time.Duration
	mu sync.Mutex
	f  func()
	t  *time.Timer
}

func newDebouncer(d time.Duration, f func()) *debouncer {
	return &debouncer{
		d: d,
		f: f,
	}
}

// Do schedules a function to be executed.
func (d *debouncer) Do() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.t != nil {
		d.t.Stop()
	}

	d.t = time.AfterFunc(d.d, d.f)
}

// Serve builds the site and starts serving it on a provided host:port.
//
// Edits to pages, static files and templates rebuild the site with the last
// fetched summary; the source is re-fetched every refresh interval (and once
// at startup).
func Serve(ctx context.Context, c *Config, addr string, src Source, refresh time.Duration) error {
	c.setDefaults()
	if refresh <= 0 {
		refresh = 3 * time.Hour
	}

	var (
		mu      sync.Mutex
		summary = report.Summarize(nil, report.Columns{})
		buildMu sync.Mutex // Build cleans Dst, so rebuilds must not overlap
	)

	fetch := func() {
		s, err := src(ctx)
		if err != nil {
			logger.Error(ctx, "failed to fetch registrations", slog.Any("err", err))
			return
		}
		mu.Lock()
		summary = s
		mu.Unlock()
	}
	rebuild := func() {
		mu.Lock()
		s := summary
		mu.Unlock()
		buildMu.Lock()
		defer buildMu.Unlock()
		if err := Build(c, s); err != nil {
			logger.Error(ctx, "failed to rebuild the site", slog.Any("err", err))
		}
	}

	logger.Info(ctx, "performing an initial fetch and build")
	fetch()
	rebuild()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range []string{
		filepath.Join(c.Src, "pages"),
		filepath.Join(c.Src, "static"),
		filepath.Join(c.Src, "templates"),
	} {
		if err := watchRecursive(watcher, dir); err != nil {
			return err
		}
	}
	defer watcher.Close()

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer l.Close()
	logger.Info(ctx, "listening for HTTP requests", slog.String("addr", "http://"+l.Addr().String()))

	httpSrv := &http.Server{Handler: &staticHandler{fs: os.DirFS(c.Dst)}}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				errCh <- err
			}
		}
	}()

	// It's better to have a bit of delay, so that we don't start building
	// the site on each keystroke.
	debouncer := newDebouncer(250*time.Millisecond, rebuild)

	go func() {
		logger.Info(ctx, "started watching for new changes")

		ticker := time.NewTicker(refresh)
		defer ticker.Stop()

		for {
			select {
			case event := <-watcher.Events:
				if !shouldRebuild(event.Name, event.Op) {
					continue
				}
				logger.Info(ctx, "detected change, scheduling build",
					slog.String("name", event.Name),
					slog.Any("op", event.Op),
				)
				debouncer.Do()
			case <-ticker.C:
				logger.Info(ctx, "refreshing registrations")
				fetch()
				debouncer.Do()
			case <-ctx.Done():
				return
			}
		}
	}()

	if serveReadyHook != nil {
		serveReadyHook()
	}

	select {
	case <-ctx.Done():
		logger.Info(ctx, "gracefully shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.Add(path)
	})
}

func shouldRebuild(path string, op fsnotify.Op) bool {
	base := filepath.Base(path)

	// Mac OS' worst mistake.
	if base == ".DS_Store" {
		return false
	}

	// Vim creates this temporary file to see whether it can write into a
	// target directory. It screws up our watching algorithm, so ignore it.
	if base == "4913" {
		return false
	}

	// A special case, but ignore creates on files that look like Vim
	// backups.
	if strings.HasSuffix(base, "~") {
		return false
	}

	if op&fsnotify.Create != 0 {
		return true
	}

	if op&fsnotify.Remove != 0 {
		return true
	}

	if op&fsnotify.Write != 0 {
		return true
	}

	// Ignore everything else: chmod won't affect build output, and rename
	// produces a following create event.
	return false
}

type staticHandler struct {
	fs fs.FS
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	if p == "/" {
		p += "/index.html"
	}
	p = strings.TrimPrefix(path.Clean(p), "/")

	// Special case: /foo will serve content from foo.html, if it exists.
	if _, err := fs.Stat(h.fs, p+".html"); err == nil {
		p += ".html"
	}

	d, err := fs.Stat(h.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		h.serveNotFound(w, r)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if d.IsDir() {
		h.serveNotFound(w, r)
		return
	}

	b, err := fs.ReadFile(h.fs, p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.ServeContent(w, r, d.Name(), d.ModTime(), bytes.NewReader(b))
}

func (h *staticHandler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	f, err := h.fs.Open("404.html")
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.WriteHeader(http.StatusNotFound)
	io.Copy(w, f)
}
