package theme

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"sync"
)

// FuncMap is available to every theme template.
var FuncMap = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
	"default": func(def, v any) any {
		if s, ok := v.(string); ok && s == "" {
			return def
		}
		if v == nil {
			return def
		}
		return v
	},
}

// HTMLEngine renders theme templates with html/template.
type HTMLEngine struct {
	cacheEnabled bool
	templates    sync.Map // "<type>/<theme>/<name>" -> *template.Template
}

// NewHTMLEngine creates an engine. With cacheEnabled parsed templates are
// kept for the lifetime of the engine.
func NewHTMLEngine(cacheEnabled bool) *HTMLEngine {
	return &HTMLEngine{cacheEnabled: cacheEnabled}
}

func (e *HTMLEngine) Render(name string, attrs map[string]any, th Theme) (string, error) {
	tmpl, err := e.lookup(name, th)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, attrs); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func (e *HTMLEngine) lookup(name string, th Theme) (*template.Template, error) {
	key := string(th.Type()) + "/" + th.Name() + "/" + name
	if e.cacheEnabled {
		if cached, ok := e.templates.Load(key); ok {
			return cached.(*template.Template), nil
		}
	}

	src, err := th.Template(name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Funcs(FuncMap).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	if e.cacheEnabled {
		e.templates.Store(key, tmpl)
	}
	return tmpl, nil
}
