package llm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

// PromptTemplate is a text/template sourced from a file or an inline string.
type PromptTemplate struct {
	name string
	path string

	mu   sync.RWMutex
	tmpl *template.Template
	hash string
}

// NewPromptTemplate parses the template file at path.
func NewPromptTemplate(path string) (*PromptTemplate, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("prompt template path is empty")
	}
	t := &PromptTemplate{name: filepath.Base(path), path: path}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewInlinePromptTemplate parses text under name.
func NewInlinePromptTemplate(name, text string) (*PromptTemplate, error) {
	t := &PromptTemplate{name: name}
	if err := t.parse([]byte(text)); err != nil {
		return nil, err
	}
	return t, nil
}

// Render executes the template with data.
func (t *PromptTemplate) Render(data any) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template %q: %w", t.name, err)
	}
	return buf.String(), nil
}

// Reload reparses a file-backed template. Inline templates are left untouched.
func (t *PromptTemplate) Reload() error {
	if t.path == "" {
		return nil
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read prompt template %q: %w", t.path, err)
	}
	return t.parse(data)
}

// Digest returns the sha256 of the template source.
func (t *PromptTemplate) Digest() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hash
}

func (t *PromptTemplate) parse(src []byte) error {
	tmpl, err := template.New(t.name).
		Option("missingkey=error").
		Funcs(template.FuncMap{"trim": strings.TrimSpace, "upper": strings.ToUpper}).
		Parse(string(src))
	if err != nil {
		return fmt.Errorf("parse prompt template %q: %w", t.name, err)
	}
	sum := sha256.Sum256(src)

	t.mu.Lock()
	t.tmpl = tmpl
	t.hash = hex.EncodeToString(sum[:])
	t.mu.Unlock()
	return nil
}
