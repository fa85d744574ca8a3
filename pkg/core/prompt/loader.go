package prompt

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/phuslu/log"
)

//go:embed defaults
var embedded embed.FS

// LoadFromDirectory overlays prompts found under baseDir/prompts onto r.
// Expected structure:
//
//	baseDir/
//	  prompts/
//	    extraction/
//	      financial_statement.json
//	    commentary/
//	      analysis.json
func (r *Registry) LoadFromDirectory(baseDir string) error {
	promptDir := filepath.Join(baseDir, "prompts")
	if _, err := os.Stat(promptDir); os.IsNotExist(err) {
		return fmt.Errorf("prompts directory not found: %s", promptDir)
	}

	before := r.Count()
	if err := r.walk(os.DirFS(promptDir)); err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	log.Info().Str("component", "prompt").Str("dir", promptDir).Int("total", r.Count()).Int("added", r.Count()-before).Msg("prompt overrides loaded")
	return nil
}

func (r *Registry) loadEmbedded() error {
	sub, err := fs.Sub(embedded, "defaults")
	if err != nil {
		return err
	}
	return r.walk(sub)
}

// walk registers every .json file of fsys. IDs and categories default to
// the file's relative path, e.g. "extraction/financial_statement.json" ->
// "extraction.financial_statement".
func (r *Registry) walk(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var pt PromptTemplate
		if err := json.Unmarshal(data, &pt); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		rel := strings.TrimSuffix(path, ".json")
		if pt.ID == "" {
			pt.ID = strings.ReplaceAll(rel, "/", ".")
		}
		if pt.Category == "" {
			pt.Category = "default"
			if i := strings.Index(rel, "/"); i > 0 {
				pt.Category = rel[:i]
			}
		}

		if err := r.Register(&pt); err != nil {
			return fmt.Errorf("failed to register %s: %w", pt.ID, err)
		}
		return nil
	})
}

// RenderUserPrompt executes the user prompt template with the given context
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	if pt.UserPromptTmpl == "" {
		return "", nil
	}

	tmpl, err := template.New(pt.ID).Option("missingkey=error").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Variables); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
