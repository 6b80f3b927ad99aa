// Package site renders the clinic's content pages.
//
// Pages are markdown files executed as text/template against the clinic
// profile and service catalog, converted with goldmark and wrapped in a shared
// layout once at start-up. Serving a page is a map lookup.
package site

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
)

//go:embed content/*.md layout.html
var contentFS embed.FS

//go:embed assets
var assetsFS embed.FS

// NavLink is one entry of the navigation bar.
type NavLink struct {
	Path  string
	Label string
}

// Page is a fully rendered HTML document.
type Page struct {
	Path  string
	Slug  string
	Title string
	HTML  []byte
}

type route struct {
	path  string
	slug  string
	label string
}

var routes = []route{
	{path: "/", slug: "home", label: "Home"},
	{path: "/about", slug: "about", label: "About"},
	{path: "/services", slug: "services", label: "Services"},
	{path: "/contact", slug: "contact", label: "Contact"},
	{path: "/appointments", slug: "appointments", label: "Appointments"},
}

// Site holds the pre-rendered pages.
type Site struct {
	pages    map[string]*Page
	notFound *Page
	nav      []NavLink
}

type contentData struct {
	Profile  clinic.Profile
	Services []clinic.Service
}

type layoutData struct {
	Title   string
	Path    string
	Slug    string
	Profile clinic.Profile
	Nav     []NavLink
	Content htmltemplate.HTML
}

// New renders every page from the clinic profile and service catalog.
func New(profile clinic.Profile, services clinic.Store) (*Site, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		// pages embed their own form markup
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	layout, err := htmltemplate.ParseFS(contentFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	s := &Site{pages: make(map[string]*Page, len(routes))}
	for _, rt := range routes {
		s.nav = append(s.nav, NavLink{Path: rt.path, Label: rt.label})
	}

	data := contentData{Profile: profile, Services: services.List()}
	for _, rt := range routes {
		page, err := s.render(md, layout, rt.path, rt.slug, data)
		if err != nil {
			return nil, err
		}
		s.pages[rt.path] = page
	}

	s.notFound, err = s.render(md, layout, "", "notfound", data)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Site) render(md goldmark.Markdown, layout *htmltemplate.Template, path, slug string, data contentData) (*Page, error) {
	name := "content/" + slug + ".md"
	raw, err := contentFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	tmpl, err := template.New(slug).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	var source bytes.Buffer
	if err := tmpl.Execute(&source, data); err != nil {
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}

	var body bytes.Buffer
	if err := md.Convert(source.Bytes(), &body); err != nil {
		return nil, fmt.Errorf("converting %s: %w", name, err)
	}

	title := extractTitle(source.String(), slug)
	var out bytes.Buffer
	if err := layout.Execute(&out, layoutData{
		Title:   title,
		Path:    path,
		Slug:    slug,
		Profile: data.Profile,
		Nav:     s.nav,
		Content: htmltemplate.HTML(body.String()),
	}); err != nil {
		return nil, fmt.Errorf("rendering layout for %s: %w", name, err)
	}

	return &Page{Path: path, Slug: slug, Title: title, HTML: out.Bytes()}, nil
}

// Page returns the page mapped to path.
func (s *Site) Page(path string) (*Page, bool) {
	p, ok := s.pages[path]
	return p, ok
}

// NotFound returns the page served for unknown paths.
func (s *Site) NotFound() *Page {
	return s.notFound
}

// Nav returns the navigation bar entries in display order.
func (s *Site) Nav() []NavLink {
	return append([]NavLink(nil), s.nav...)
}

// Assets exposes the static files (stylesheet, widget script).
func Assets() fs.FS {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// extractTitle pulls the first # heading from markdown, or falls back to the slug.
func extractTitle(content, slug string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return slug
}
