package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/moodmeter/moodmeter/internal/auth"
	"github.com/moodmeter/moodmeter/internal/handler/dto"
	"github.com/moodmeter/moodmeter/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names, one template file each.
const (
	PageIndex     = "index"
	PageRegister  = "register"
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PageAnalyze   = "analyze"
	PageAPIDocs   = "api_docs"
)

var pageTitles = map[string]string{
	PageIndex:     "Home",
	PageRegister:  "Register",
	PageLogin:     "Log in",
	PageDashboard: "Dashboard",
	PageAnalyze:   "Analyze",
	PageAPIDocs:   "API",
}

var templateFuncs = template.FuncMap{
	"percent": func(f float64) string {
		return fmt.Sprintf("%.1f%%", f*100)
	},
	"datetime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 UTC")
	},
}

// PageData is the view model shared by all pages.
type PageData struct {
	Title   string
	Account *model.Account
	Error   string
	Fields  map[string]string // field -> validation message
	Form    map[string]string // echoed form values, never passwords
	BaseURL string

	Usage  []dto.UsageResponse
	Keys   []model.APIKeyResponse
	Text   string
	Result *dto.AnalyzeResponse
}

// Pages renders the server-side HTML templates.
type Pages struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewPages parses every page against the shared layout.
func NewPages(logger *slog.Logger) (*Pages, error) {
	p := &Pages{templates: make(map[string]*template.Template, len(pageTitles)), logger: logger}
	for name := range pageTitles {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

// Render writes page name with status. The account in the request context,
// if any, is shown in the navigation unless data already carries one.
func (p *Pages) Render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	tmpl, ok := p.templates[name]
	if !ok {
		p.logger.Error("unknown page", "page", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if data.Title == "" {
		data.Title = pageTitles[name]
	}
	if data.Account == nil {
		data.Account = auth.AccountFromContext(r.Context())
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.Error("render failed", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// PageHandler serves the static pages.
type PageHandler struct {
	pages *Pages
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(pages *Pages) *PageHandler {
	return &PageHandler{pages: pages}
}

// Index handles GET /.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, PageIndex, PageData{})
}

// APIDocs handles GET /api/docs.
func (h *PageHandler) APIDocs(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, PageAPIDocs, PageData{BaseURL: baseURL(r)})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
