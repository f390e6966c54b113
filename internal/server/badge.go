package server

import (
	"bytes"
	"net/http"
	"text/template"

	"github.com/go-chi/chi/v5"

	"github.com/jpalmerr/beacon/internal/store"
)

var badgeColors = map[store.Status]string{
	store.StatusHealthy: "#3fb950",
	store.StatusSick:    "#d29922",
	store.StatusDead:    "#f85149",
}

var badgeTemplates = map[string]*template.Template{
	"default": template.Must(template.New("default").Parse(
		`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="20" role="img" aria-label="status: {{.Status}}">` +
			`<rect width="48" height="20" fill="#555"/>` +
			`<rect x="48" width="{{.ValueWidth}}" height="20" fill="{{.Color}}"/>` +
			`<g fill="#fff" text-anchor="middle" font-family="Verdana,sans-serif" font-size="11">` +
			`<text x="24" y="14">status</text>` +
			`<text x="{{.ValueX}}" y="14">{{.Status}}</text>` +
			`</g></svg>`)),
	"icon": template.Must(template.New("icon").Parse(
		`<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16" role="img" aria-label="status: {{.Status}}">` +
			`<circle cx="8" cy="8" r="7" fill="{{.Color}}"/>` +
			`</svg>`)),
}

type badgeData struct {
	Status     store.Status
	Color      string
	Width      int
	ValueWidth int
	ValueX     int
}

// handleBadge renders an SVG badge of the overall status.
func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := badgeTemplates[chi.URLParam(r, "kind")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	status := s.svc.Status()

	valueWidth := 8*len(status.String()) + 12
	data := badgeData{
		Status:     status,
		Color:      badgeColors[status],
		Width:      48 + valueWidth,
		ValueWidth: valueWidth,
		ValueX:     48 + valueWidth/2,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		s.logger.Error("failed to render badge", "error", err)
		http.Error(w, "badge error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("failed to write badge response", "error", err)
	}
}
