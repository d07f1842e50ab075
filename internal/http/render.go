package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const flashCookie = "quillpad_flash"

func loadTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.tmpl"))
}

// render executes a page template with the common layout fields filled in.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	page := gin.H{
		"user":  nil,
		"flash": h.popFlash(c),
		"query": "",
		"title": "",
		"next":  "",
	}
	if user, ok := currentUser(c); ok {
		page["user"] = user
	}
	for k, v := range data {
		page[k] = v
	}
	c.HTML(status, name, page)
}

// flash stores a one-shot notice for the next rendered page.
func (h *Handler) flash(c *gin.Context, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, message, 60, "/", "", h.secureCookies, true)
}

func (h *Handler) popFlash(c *gin.Context) string {
	message, err := c.Cookie(flashCookie)
	if err != nil || message == "" {
		return ""
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, "", -1, "/", "", h.secureCookies, true)
	return message
}

func (h *Handler) redirectWithFlash(c *gin.Context, location, message string) {
	h.flash(c, message)
	c.Redirect(http.StatusFound, location)
}
