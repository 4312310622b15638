// Package prompt loads the TOML templates that shape the system and user
// messages sent with each turn. Users can override the built-ins by placing
// summarize.toml or ask.toml in the prompt directory.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/pagemate/pagemate/internal/page"
)

// Template is one prompt file: a system part and a user part, both with
// {{placeholder}} substitution.
type Template struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

// Render substitutes {{key}} placeholders in both parts.
func (t *Template) Render(vars map[string]string) (system, user string) {
	system, user = t.System, t.User
	for key, value := range vars {
		placeholder := "{{" + key + "}}"
		system = strings.ReplaceAll(system, placeholder, value)
		user = strings.ReplaceAll(user, placeholder, value)
	}
	return system, user
}

// Library resolves named templates from a directory, falling back to the
// built-in defaults when no override file exists.
type Library struct {
	dir string
}

// NewLibrary returns a library rooted at dir. The directory does not need
// to exist; defaults cover everything.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Summarize returns the template for the summarize operation.
func (l *Library) Summarize() (*Template, error) {
	return l.load("summarize", defaultSummarize)
}

// Ask returns the template for question turns.
func (l *Library) Ask() (*Template, error) {
	return l.load("ask", defaultAsk)
}

func (l *Library) load(name string, fallback Template) (*Template, error) {
	path := filepath.Join(l.dir, name+".toml")
	if _, err := os.Stat(path); err != nil {
		t := fallback
		return &t, nil
	}

	var t Template
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("error decoding prompt file %s: %w", path, err)
	}
	if t.System == "" {
		t.System = fallback.System
	}
	if t.User == "" {
		t.User = fallback.User
	}
	return &t, nil
}

// Vars builds the substitution set for a page-aware template. input is the
// user's question for ask turns and empty for summarize turns.
func Vars(pg *page.Content, input string) map[string]string {
	kind := "webpage"
	if pg.IsVideo {
		kind = "video page"
	}
	return map[string]string{
		"title":   pg.Title,
		"url":     pg.URL,
		"content": pg.Body,
		"kind":    kind,
		"input":   input,
	}
}

const pageContext = `The user is currently viewing this {{kind}}:

Title: {{title}}
URL: {{url}}

Page content:
{{content}}`

var defaultSummarize = Template{
	System: `You are pagemate, a concise reading assistant.

` + pageContext + `

Summarize faithfully. Do not invent facts that are not on the page.`,
	User: "Summarize this page. Lead with the key points, keep it short, and use plain language.",
}

var defaultAsk = Template{
	System: `You are pagemate, a helpful reading assistant. Answer questions
about the page the user is viewing. Be concise and direct. If the page does
not contain the answer, say so instead of guessing.

` + pageContext,
	User: "{{input}}",
}
