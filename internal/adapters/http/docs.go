package http

import (
	"html/template"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body style="margin:0">
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: '{{.SpecURL}}', dom_id: '#swagger-ui', deepLinking: true});
  </script>
</body>
</html>`))

// SetupDocs serves Swagger UI at /docs and the OpenAPI document at
// /docs/openapi.yaml. The document is loaded once; a missing file disables
// both routes with a warning in the access log (404).
func SetupDocs(app *fiber.App, specPath string) {
	spec, readErr := os.ReadFile(specPath)

	var page strings.Builder
	_ = swaggerPage.Execute(&page, struct{ Title, SpecURL string }{
		Title:   "tifprobe API",
		SpecURL: "/docs/openapi.yaml",
	})
	html := page.String()

	app.Get("/docs", func(c *fiber.Ctx) error {
		if readErr != nil {
			return errNotFound(c, "API documentation is not available")
		}
		c.Type("html", "utf-8")
		return c.SendString(html)
	})
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if readErr != nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(spec)
	})
}
