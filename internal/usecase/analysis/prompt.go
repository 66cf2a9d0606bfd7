package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docqa/internal/domain"
)

const (
	streamSystemPrompt = "You are a professional financial analyst experienced in financial statement " +
		"and business analysis. Provide professional, objective and practical analysis based on the " +
		"financial data supplied."
	completeSystemPrompt = "You are a professional financial analyst. Provide a concise, professional " +
		"financial analysis report."
)

const requirements = `Requirements:
1. Output markdown.
2. Keep a clear structure with headed sections.
3. Base the analysis on the actual data and cite specific figures.
4. Give concrete, actionable recommendations.
5. Answer in the language of the documents.
6. If the data is incomplete, analyse what is available and state the limitations.`

// BuildPrompt combines the template for req.AnalysisType with up to
// maxContext runes of the request text.
func BuildPrompt(req Request, maxContext int, stream bool) domain.Prompt {
	tpl := TemplateFor(req.AnalysisType)

	var b strings.Builder
	b.WriteString(tpl.Instructions)
	b.WriteString("\n\n")
	if req.CompanyName != "" {
		fmt.Fprintf(&b, "Company: %s\n\n", req.CompanyName)
	}
	b.WriteString("Analyse the following financial document content:\n\n")
	b.WriteString(truncate(req.Text, maxContext))
	b.WriteString("\n\n")
	b.WriteString(requirements)

	system := completeSystemPrompt
	if stream {
		system = streamSystemPrompt
	}
	return domain.Prompt{System: system, User: b.String()}
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
