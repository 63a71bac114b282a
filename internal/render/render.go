// Package render turns view models into markup. HTMLRenderer relies on
// html/template contextual escaping, so names, skills and filenames coming
// from resumes or the server are never interpreted as markup.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/selection"
	"github.com/kadvsk2006/Automated-Resume-Screening/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is everything the screening console shows
type Page struct {
	JobDescription string
	IncludeCSV     bool
	SelectedFiles  []string
	Notice         string
	NoticeIsError  bool
	Summary        *models.RunSummary
	Uploaded       view.Section
	Database       view.Section
	Detail         *view.Detail
	Busy           bool
}

// SelectedCount is the counter text under the drop target
func (p Page) SelectedCount() string {
	return selection.CountLabel(len(p.SelectedFiles))
}

// Armed reports whether the drop target shows the selected state
func (p Page) Armed() bool {
	return len(p.SelectedFiles) > 0
}

// ShowResults reports whether the results area is visible
func (p Page) ShowResults() bool {
	return p.Summary != nil
}

// Renderer writes pages and fragments
type Renderer interface {
	Page(w io.Writer, p Page) error
	Rows(w io.Writer, section view.Section) error
	Detail(w io.Writer, d view.Detail) error
}

// HTMLRenderer renders with the embedded html/template set
type HTMLRenderer struct {
	tmpl *template.Template
}

var funcs = template.FuncMap{
	"width": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"tierClass": func(t view.Tier) string {
		return "bg-" + string(t)
	},
	"join": strings.Join,
}

// NewHTMLRenderer parses the embedded templates
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

// Page renders the full console page
func (r *HTMLRenderer) Page(w io.Writer, p Page) error {
	return r.execute(w, "page", p)
}

// Rows renders the <tr> elements of one section
func (r *HTMLRenderer) Rows(w io.Writer, section view.Section) error {
	return r.execute(w, "rows", section)
}

// Detail renders the candidate detail block
func (r *HTMLRenderer) Detail(w io.Writer, d view.Detail) error {
	return r.execute(w, "detail", d)
}

func (r *HTMLRenderer) execute(w io.Writer, name string, data interface{}) error {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}
