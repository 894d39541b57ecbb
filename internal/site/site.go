// Package site serves the crawler and asset surface of the marketing site:
// robots.txt, sitemap.xml, static files and the health probe.
package site

import (
	"encoding/json"
	"encoding/xml"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dollarport/edu-site/pkg/logging"
)

// PublicPaths are the indexable pages listed in the sitemap, in order.
var PublicPaths = []string{
	"/",
	"/forex-market",
	"/courses",
	"/simulation",
	"/tools",
	"/insights",
	"/broker-guide",
	"/community",
	"/contact",
	"/forex-course-calicut",
}

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Config wires the site handlers.
type Config struct {
	SiteURL   string
	PublicDir string
	Logger    *logging.Logger
}

// Site serves the non-form routes.
type Site struct {
	siteURL   string
	publicDir string
	logger    *logging.Logger
	now       func() time.Time
}

// New creates the site handlers. SiteURL may be empty, in which case each
// request's own scheme and host are used.
func New(cfg Config) *Site {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Site{
		siteURL:   strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/"),
		publicDir: cfg.PublicDir,
		logger:    cfg.Logger,
		now:       time.Now,
	}
}

// BaseURL resolves the canonical origin for r.
func (s *Site) BaseURL(r *http.Request) string {
	if s.siteURL != "" {
		return s.siteURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// Robots handles GET /robots.txt.
func (s *Site) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(strings.Join([]string{
		"User-agent: *",
		"Allow: /",
		"Sitemap: " + s.BaseURL(r) + "/sitemap.xml",
	}, "\n")))
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// Sitemap handles GET /sitemap.xml. Every entry carries today's UTC date.
func (s *Site) Sitemap(w http.ResponseWriter, r *http.Request) {
	base := s.BaseURL(r)
	today := s.now().UTC().Format(time.DateOnly)

	set := urlset{XMLNS: sitemapNS, URLs: make([]sitemapURL, 0, len(PublicPaths))}
	for _, p := range PublicPaths {
		set.URLs = append(set.URLs, sitemapURL{Loc: base + p, LastMod: today})
	}
	body, err := xml.Marshal(set)
	if err != nil {
		s.logger.Error("sitemap encode failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// Health handles GET /health.
func (s *Site) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Static serves files under the public directory. Directories without an
// index.html and missing files are 404.
func (s *Site) Static() http.Handler {
	if s.publicDir == "" {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.Dir(s.publicDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		info, err := os.Stat(filepath.Join(s.publicDir, filepath.FromSlash(clean)))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if info.IsDir() {
			if _, err := os.Stat(filepath.Join(s.publicDir, filepath.FromSlash(clean), "index.html")); err != nil {
				http.NotFound(w, r)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}
