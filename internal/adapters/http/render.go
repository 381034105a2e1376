package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"therapro/internal/adapters/http/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var templateFuncs = template.FuncMap{
	"markdown": renderMarkdown,
	"add":      func(a, b int) int { return a + b },
	"sub":      func(a, b int) int { return a - b },
	"pageQuery": func(page, perPage int, search string) template.URL {
		q := fmt.Sprintf("page=%d&per_page=%d", page, perPage)
		if search != "" {
			q += "&q=" + template.URLQueryEscaper(search)
		}
		return template.URL(q)
	},
}

// renderer holds one parsed template set per page, each combined with the layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	rd := &renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := strings.TrimPrefix(name, "templates/")
		if base == "layout.html" {
			continue
		}
		tpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		rd.pages[base] = tpl
	}
	return rd, nil
}

// pageData is what every page template receives.
type pageData struct {
	Title     string
	Session   middleware.Session
	LoggedIn  bool
	IsAdmin   bool
	CSRFField template.HTML
	Error     string
	Page      any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, page any) {
	s.renderError(w, r, status, name, title, "", page)
}

// renderError renders a page with an inline message, used when a form is rejected.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, name, title, msg string, page any) {
	tpl, ok := s.pages.pages[name]
	if !ok {
		internalError(w, fmt.Errorf("unknown template %s", name))
		return
	}
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())
	data := pageData{
		Title:     title,
		Session:   sess,
		LoggedIn:  loggedIn,
		IsAdmin:   middleware.IsAdmin(r.Context()),
		CSRFField: csrf.TemplateField(r),
		Error:     msg,
		Page:      page,
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if isHTMLRequest(r) {
		s.render(w, r, http.StatusNotFound, "not_found.html", "Not found", nil)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "error", err.Error())
	}
}

// badRequest reports a rejected input as JSON.
func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// returnTo picks the page a form post goes back to. Only admin pages are
// accepted so the field cannot become an open redirect.
func returnTo(r *http.Request, fallback string) string {
	next := r.FormValue("return_to")
	if strings.HasPrefix(next, "/admin/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return fallback
}
