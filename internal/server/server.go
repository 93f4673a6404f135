package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/yuin/goldmark"

	"github.com/storymint/storymint/internal/database"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// DefaultCacheTTL bounds how long rendered story responses are reused.
const DefaultCacheTTL = 5 * time.Minute

// Server is the HTTP preview server for stored stories.
type Server struct {
	db    *database.DB
	pages map[string]*template.Template
	mux   *http.ServeMux
	cache *gocache.Cache
}

// New creates a new Server. cacheTTL bounds how long rendered story
// responses are reused; zero or negative falls back to DefaultCacheTTL.
func New(db *database.DB, cacheTTL time.Duration) (*Server, error) {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "story.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:    db,
		pages: pages,
		mux:   http.NewServeMux(),
		cache: gocache.New(cacheTTL, 2*cacheTTL),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/story/", s.handleStory)
	s.mux.HandleFunc("/api/story/", s.handleAPIStory)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	records, err := s.db.ListStories(0)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Records": records,
	})
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	storyID := strings.TrimPrefix(r.URL.Path, "/story/")
	if storyID == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if page, found := s.cache.Get("page:" + storyID); found {
		writeHTML(w, page.([]byte))
		return
	}

	m, err := s.db.GetStory(storyID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := s.renderTo(&buf, "story.html", map[string]any{"Manifest": m}); err != nil {
		log.Printf("Error rendering story %s: %v", storyID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Stored manifests never change (a rebuild creates a new story),
	// so the rendered page is safe to reuse until the TTL expires.
	s.cache.Set("page:"+storyID, buf.Bytes(), gocache.DefaultExpiration)
	writeHTML(w, buf.Bytes())
}

func (s *Server) handleAPIStory(w http.ResponseWriter, r *http.Request) {
	storyID := strings.TrimPrefix(r.URL.Path, "/api/story/")
	if storyID == "" {
		http.Error(w, "missing story id", http.StatusBadRequest)
		return
	}

	if doc, found := s.cache.Get("api:" + storyID); found {
		writeJSON(w, doc.([]byte))
		return
	}

	m, err := s.db.GetStory(storyID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.NotFound(w, r)
		return
	}

	doc, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.cache.Set("api:"+storyID, doc, gocache.DefaultExpiration)
	writeJSON(w, doc)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.renderTo(&buf, name, data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (s *Server) renderTo(buf *bytes.Buffer, name string, data any) error {
	tmpl, ok := s.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return tmpl.ExecuteTemplate(buf, "base.html", data)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, port int, cacheTTL time.Duration) error {
	srv, err := New(db, cacheTTL)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
