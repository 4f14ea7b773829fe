package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// subjectKey is the frontmatter field overriding the localised subject.
const subjectKey = "subject"

var blankLines = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)

// TemplateData is what email templates are executed against: the recipient's
// name plus every field of the check result ({{.Zodiac}}, {{.DaysUntil}}, ...).
type TemplateData struct {
	Name string
	engine.Details
}

// Renderer executes the file-based email templates. Files ending in .md are
// markdown with optional YAML frontmatter, converted with goldmark and wrapped
// in the HTML layout; every other file is an html/template document.
// Parsed templates are cached; the renderer is safe for concurrent use.
type Renderer struct {
	fs     fs.FS
	layout string
	md     goldmark.Markdown
	strict *bluemonday.Policy

	cache       map[string]*cachedTemplate
	layoutCache *template.Template
	mu          sync.RWMutex
}

type cachedTemplate struct {
	metadata map[string]any
	subject  *texttemplate.Template
	markdown *texttemplate.Template
	page     *template.Template
}

// NewRenderer reads templates from filesystem. layout names the wrapper used
// by markdown templates; empty selects config.DefaultLayout.
func NewRenderer(filesystem fs.FS, layout string) *Renderer {
	if layout == "" {
		layout = config.DefaultLayout
	}
	return &Renderer{
		fs:     filesystem,
		layout: layout,
		md:     goldmark.New(goldmark.WithExtensions(extension.Table)),
		strict: bluemonday.StrictPolicy(),
		cache:  make(map[string]*cachedTemplate),
	}
}

// Render executes the named template. The returned Content carries the HTML
// body, a plain-text alternative and, when the frontmatter defines one, a subject.
func (r *Renderer) Render(name string, data TemplateData) (Content, error) {
	cached, err := r.getTemplate(name)
	if err != nil {
		return Content{}, err
	}

	var out Content
	if cached.page != nil {
		var buf bytes.Buffer
		if err := cached.page.Execute(&buf, data); err != nil {
			return Content{}, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
		}
		out.HTML = buf.String()
	} else {
		if out.HTML, err = r.renderMarkdown(name, cached, data); err != nil {
			return Content{}, err
		}
	}

	if cached.subject != nil {
		var buf bytes.Buffer
		if err := cached.subject.Execute(&buf, data); err != nil {
			return Content{}, fmt.Errorf("%w: %s: subject: %v", ErrRenderFailed, name, err)
		}
		out.Subject = strings.TrimSpace(buf.String())
	}

	out.Text = r.PlainText(out.HTML)
	out.Details = data.Details
	return out, nil
}

func (r *Renderer) renderMarkdown(name string, cached *cachedTemplate, data TemplateData) (string, error) {
	var processed bytes.Buffer
	if err := cached.markdown.Execute(&processed, data); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
	}

	var body bytes.Buffer
	if err := r.md.Convert(processed.Bytes(), &body); err != nil {
		return "", fmt.Errorf("%w: failed to convert markdown: %v", ErrRenderFailed, err)
	}

	layout, err := r.getLayout()
	if err != nil {
		return "", err
	}

	var page bytes.Buffer
	layoutData := map[string]any{
		"Content":  template.HTML(body.String()),
		"Metadata": cached.metadata,
		"Name":     data.Name,
	}
	if err := layout.Execute(&page, layoutData); err != nil {
		return "", fmt.Errorf("%w: failed to execute layout: %v", ErrRenderFailed, err)
	}
	return page.String(), nil
}

// PlainText strips every tag from an HTML document and collapses blank lines.
func (r *Renderer) PlainText(doc string) string {
	text := html.UnescapeString(r.strict.Sanitize(doc))
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// getTemplate returns a cached template or parses and caches it.
func (r *Renderer) getTemplate(name string) (*cachedTemplate, error) {
	r.mu.RLock()
	if cached, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}

	content, err := fs.ReadFile(r.fs, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, name, err)
	}

	cached := &cachedTemplate{}
	if path.Ext(name) == config.ExtMarkdown {
		parsed, err := ParseTemplate(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
		}
		cached.metadata = parsed.Metadata
		if cached.markdown, err = texttemplate.New(name).Parse(parsed.Body); err != nil {
			return nil, fmt.Errorf("%w: failed to parse template body: %v", ErrRenderFailed, err)
		}
		if subject, ok := parsed.Metadata[subjectKey].(string); ok && subject != "" {
			if cached.subject, err = texttemplate.New(name + ".subject").Parse(subject); err != nil {
				return nil, fmt.Errorf("%w: failed to parse subject: %v", ErrRenderFailed, err)
			}
		}
	} else {
		if cached.page, err = template.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRenderFailed, name, err)
		}
	}

	r.cache[name] = cached
	return cached, nil
}

// getLayout returns the cached layout or parses it.
func (r *Renderer) getLayout() (*template.Template, error) {
	r.mu.RLock()
	if r.layoutCache != nil {
		defer r.mu.RUnlock()
		return r.layoutCache, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.layoutCache != nil {
		return r.layoutCache, nil
	}

	content, err := fs.ReadFile(r.fs, r.layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, r.layout, err)
	}
	layout, err := template.New(r.layout).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse layout: %v", ErrRenderFailed, err)
	}
	r.layoutCache = layout
	return layout, nil
}
