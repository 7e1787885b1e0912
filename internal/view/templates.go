package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/web"
)

// Engine renders HTML templates.
type Engine struct {
	pages map[string]*template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	Flashes     []shared.FlashMessage
	CurrentPath string
	CurrentUser string
	Data        any
}

// NewEngine parses the base layout once per page so every page can define
// its own "content" block.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatTime": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04:05")
		},
	}
	base, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	files, err := fs.Glob(web.Templates, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		tpl, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tpl.ParseFS(web.Templates, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages["pages/"+path.Base(file)] = tpl
	}
	return &Engine{pages: pages}, nil
}

// Render executes a named page with TemplateData. Nothing is written to w
// when execution fails.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	tpl, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
