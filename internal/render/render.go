// Package render parses the embedded page templates and renders them with
// the flash message and signed-in admin of the current request.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/lensfolio/folio-admin/internal/middleware"
	"github.com/lensfolio/folio-admin/internal/model"
	"github.com/lensfolio/folio-admin/internal/util"
)

// Flash types.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Session keys of the one-shot flash message.
const (
	sessionKeyFlash     = "flash"
	sessionKeyFlashType = "flash_type"
)

// DefaultProfileImage is shown when a user has no usable profile picture.
const DefaultProfileImage = "/static/default-profile.svg"

// DescriptionPreviewLength is where table cells cut long descriptions.
const DescriptionPreviewLength = 70

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	isDev          bool
	version        string
	location       *time.Location
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	IsDev          bool
	Version        string
	Location       *time.Location // for product timestamps; defaults to time.Local
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		isDev:          cfg.IsDev,
		version:        cfg.Version,
		location:       cfg.Location,
	}
	if r.location == nil {
		r.location = time.Local
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}

	return r, nil
}

// pageGroups lists the page directories and the layouts each is parsed with.
var pageGroups = []struct {
	dir     string
	layouts []string
}{
	{"admin", []string{"layouts/base.html", "layouts/admin.html"}},
	{"auth", []string{"layouts/base.html"}},
	{"errors", []string{"layouts/base.html"}},
}

// parseTemplates parses all templates from the filesystem.
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := r.getTemplateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	for _, group := range pageGroups {
		pages, err := r.getTemplateFiles(templatesFS, group.dir)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", group.dir, err)
		}

		for _, tmplPath := range pages {
			name := group.dir + "/" + strings.TrimSuffix(path.Base(tmplPath), ".html")

			// Parse in order: layouts, partials, page template
			files := append([]string{}, group.layouts...)
			files = append(files, partials...)
			files = append(files, tmplPath)

			tmpl, err := template.New("").Funcs(r.templateFuncs()).ParseFS(templatesFS, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}

	return nil
}

// getTemplateFiles returns all .html files in a directory.
func (r *Renderer) getTemplateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	var files []string

	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		// Directory might not exist yet, that's ok
		return files, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// Has reports whether a page template was parsed.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// templateFuncs returns custom template functions.
func (r *Renderer) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"productDate": func(p model.Product) string {
			t, ok := p.CreatedAt()
			if !ok {
				return p.DateTime
			}
			return t.In(r.location).Format("Jan 2, 2006")
		},
		"productTime": func(p model.Product) string {
			t, ok := p.CreatedAt()
			if !ok {
				return ""
			}
			return t.In(r.location).Format("3:04 PM")
		},
		"formatDateTime": func(t time.Time) string {
			return t.In(r.location).Format("Jan 2, 2006 3:04 PM")
		},
		"truncate": util.Truncate,
		"preview": func(s string) string {
			return util.Truncate(s, DescriptionPreviewLength)
		},
		"profileImage": func(u model.User) string {
			if strings.TrimSpace(u.ProfilePicture) == "" {
				return DefaultProfileImage
			}
			return u.ProfilePicture
		},
		"defaultProfileImage": func() string {
			return DefaultProfileImage
		},
		"navActive": func(current, prefix string) bool {
			if prefix == "/" {
				return current == "/"
			}
			return current == prefix || strings.HasPrefix(current, prefix+"/")
		},
		"formatBytes": formatBytes,
		"add": func(a, b int) int {
			return a + b
		},
	}
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Data        any
	Flash       string
	FlashType   string
	CurrentYear int
	CurrentPath string
	User        *model.User
	Version     string
	IsDev       bool
}

// Render renders a template with status 200.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()
	data.CurrentPath = middleware.GetRequestPath(req.Context())
	if data.CurrentPath == "" {
		data.CurrentPath = req.URL.Path
	}
	data.Version = r.version
	data.IsDev = r.isDev
	if data.User == nil {
		data.User = middleware.GetIdentity(req)
	}

	// A flash set earlier in this request wins over the page's own message.
	if r.sessionManager != nil {
		if flash := r.sessionManager.PopString(req.Context(), sessionKeyFlash); flash != "" {
			data.Flash = flash
			data.FlashType = r.sessionManager.PopString(req.Context(), sessionKeyFlashType)
		}
	}
	if data.Flash != "" && data.FlashType == "" {
		data.FlashType = FlashInfo
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// RenderError renders the generic error page, falling back to plain text
// if the page itself fails.
func (r *Renderer) RenderError(w http.ResponseWriter, req *http.Request, status int, message string) {
	err := r.RenderStatus(w, req, status, "errors/error", TemplateData{
		Title: http.StatusText(status),
		Data: map[string]any{
			"Status":  status,
			"Message": message,
		},
	})
	if err != nil {
		slog.Error("failed to render error page", "error", err, "status", status)
		http.Error(w, message, status)
	}
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		r.sessionManager.Put(req.Context(), sessionKeyFlash, message)
		r.sessionManager.Put(req.Context(), sessionKeyFlashType, flashType)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
