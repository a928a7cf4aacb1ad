package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Render.
const (
	RegisterPage  = "register.html"
	VerifyPage    = "otp.html"
	LoginPage     = "login.html"
	DashboardPage = "dashboard.html"
)

// FormData is passed to the register, otp, and login pages.
type FormData struct {
	Error   string
	Warning string
	Values  map[string]string
}

// Value returns a previously submitted field so the form can be refilled.
func (f FormData) Value(field string) string {
	return f.Values[field]
}

// DashboardData is passed to the dashboard page.
type DashboardData struct {
	UserName string
}

// Renderer renders the embedded HTML pages for echo.
type Renderer struct {
	pages map[string]*template.Template
}

var _ echo.Renderer = (*Renderer)(nil)

// New parses every page, each composed with the shared layout.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{RegisterPage, VerifyPage, LoginPage, DashboardPage} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
