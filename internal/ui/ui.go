package ui

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/ticketgpt/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Tab names used by the page
const (
	TabSpeak = "speak"
	TabChat  = "chat"
)

// PageData is rendered by the index template
type PageData struct {
	ActiveTab  string
	Voice      *domain.QueryResult
	Chat       *domain.QueryResult
	Query      string
	Error      string
	TTSEnabled bool
}

// Renderer implements echo.Renderer over the embedded templates
type Renderer struct {
	templates *template.Template
}

var _ echo.Renderer = (*Renderer)(nil)

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	templates, err := template.New("").
		Funcs(template.FuncMap{"speechScript": SpeechSynthesisScript}).
		ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: templates}, nil
}

// Render implements echo.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// SpeechSynthesisScript returns a browser snippet that speaks text.
// Both values are embedded as JSON string literals, which escape quotes,
// angle brackets and line separators.
func SpeechSynthesisScript(text, lang string) template.JS {
	textLiteral, _ := json.Marshal(text)
	langLiteral, _ := json.Marshal(lang)

	return template.JS(fmt.Sprintf(
		"var u = new SpeechSynthesisUtterance();\nu.text = %s;\nu.lang = %s;\nspeechSynthesis.cancel();\nspeechSynthesis.speak(u);",
		textLiteral, langLiteral))
}
