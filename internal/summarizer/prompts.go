package summarizer

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/phrazzld/summa/internal/domain"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptFS, "prompts/*.tmpl"),
)

type reducePromptData struct {
	Partials []string
	Count    int
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", name, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// SummarizeInstruction returns the instruction sent after each chunk.
func SummarizeInstruction() (string, error) {
	return render("summarize.tmpl", nil)
}

// ReducePrompt returns the reduction prompt embedding partials in order.
func ReducePrompt(partials []string) (string, error) {
	return render("reduce.tmpl", reducePromptData{
		Partials: partials,
		Count:    domain.BulletPointCount,
	})
}
