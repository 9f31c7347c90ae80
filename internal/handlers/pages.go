package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gatekeep/authserver/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "register", "dashboard"}

type pageData struct {
	Title    string
	Message  string
	Identity services.Identity
}

type pages struct {
	byName map[string]*template.Template
}

func loadPages() (*pages, error) {
	p := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.byName[name] = tmpl
	}
	return p, nil
}

func mustLoadPages() *pages {
	p, err := loadPages()
	if err != nil {
		panic(err)
	}
	return p
}

// render executes into a buffer first so a template failure yields a clean 500.
func (p *pages) render(w http.ResponseWriter, name string, data pageData) error {
	tmpl, ok := p.byName[name]
	if !ok {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
