package view

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// RenderPage writes the HTML page for v
func RenderPage(w io.Writer, v View) error {
	return pageTemplate.ExecuteTemplate(w, "page.html", v)
}
