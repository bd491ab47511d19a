package http

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
)

// PageData is rendered into the single page
type PageData struct {
	Title   string
	Version string
	Sources []string
}

// PageHandler serves the embedded index page
type PageHandler struct {
	tmpl   *template.Template
	data   PageData
	logger *slog.Logger
}

// NewPageHandler parses index.html from the frontend filesystem
func NewPageHandler(frontendFS fs.FS, data PageData, logger *slog.Logger) (*PageHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.ParseFS(frontendFS, "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index page: %w", err)
	}
	return &PageHandler{
		tmpl:   tmpl,
		data:   data,
		logger: logger.With(slog.String("handler", "page")),
	}, nil
}

// ServeIndex handles GET /
func (h *PageHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	if err := h.tmpl.Execute(w, h.data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render page", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}
