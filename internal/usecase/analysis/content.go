package analysis

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	sampleLines     = 5
	maxFinancialHit = 5
	reportDate      = "2006-01-02"
)

// financialKeywords mark lines that look like financial statement items.
var financialKeywords = []string{
	"资产", "负债", "收入", "利润", "现金", "成本",
	"asset", "liabilit", "revenue", "profit", "cash", "cost",
}

// ContentSections builds the locally generated report used when the LLM is
// unavailable: a data overview, detected financial lines and generic advice.
func ContentSections(text, analysisType string, now time.Time) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	var items []string
	for _, l := range lines {
		if isFinancialLine(l) {
			items = append(items, l)
			if len(items) == maxFinancialHit {
				break
			}
		}
	}

	sample := lines
	if len(sample) > sampleLines {
		sample = sample[:sampleLines]
	}

	sections := []string{
		fmt.Sprintf("# Financial Analysis Report\n\n**Report date:** %s\n**Source:** uploaded documents\n\n",
			now.Format(reportDate)),
		"## 1. Data overview\n\n",
		fmt.Sprintf("This analysis is based on the uploaded documents, %d characters in total.\n\n",
			utf8.RuneCountInString(text)),
		fmt.Sprintf("Sample content:\n```\n%s\n```\n\n", strings.Join(sample, "\n")),
		"## 2. Financial items\n\n",
	}

	if len(items) > 0 {
		sections = append(sections, "### Detected financial items\n")
		for _, it := range items {
			sections = append(sections, fmt.Sprintf("- %s\n", it))
		}
		sections = append(sections, "\n")
	} else {
		sections = append(sections,
			"### Detection result\n",
			"The documents need further structuring before their financial data can be analysed.\n\n",
		)
	}

	sections = append(sections,
		"## 3. Conclusions\n\n",
		"### 3.1 Data quality\n",
		fmt.Sprintf("- Completeness: the documents contain %d non-empty lines\n", len(lines)),
		fmt.Sprintf("- Analysis type: %s\n", TemplateFor(analysisType).Title),
		"- Structured financial statements would allow a deeper analysis\n\n",
		"### 3.2 Suggestions\n",
		"1. **Standard formats**: use standard financial statement layouts\n",
		"2. **Completeness**: include every account needed for ratio calculation\n",
		"3. **Time series**: provide several periods for trend analysis\n",
		"4. **Breakdown**: split revenue, cost and expense items\n\n",
		"## 4. Next steps\n\n",
		"For a more accurate analysis, upload:\n",
		"- the balance sheet\n",
		"- the income statement\n",
		"- the cash flow statement\n\n",
		"---\n*Generated from the uploaded document content without the AI analysis engine.*",
	)
	return sections
}

// CannedAnalysis is the static summary used when nothing better is available.
func CannedAnalysis(analysisType string, textLength int, now time.Time) string {
	return fmt.Sprintf(`# Financial Analysis Report

**Report date:** %s

## Executive summary

Based on the uploaded documents (%d characters in total), this report applies the %s method to assess the company's financial position.

## Main findings

- The financial data was processed successfully
- Analysis type: %s
- Cash flow management and profitability deserve particular attention

## Conclusion

The financial base appears stable. Continue refining financial management and operating efficiency.

## Recommendations

1. Strengthen financial monitoring
2. Tighten cost control
3. Improve the efficiency of capital use
4. Complete the risk management framework

---
*Generated without the AI analysis engine.*`,
		now.Format(reportDate), textLength, TemplateFor(analysisType).Title, analysisType)
}

func isFinancialLine(line string) bool {
	lower := strings.ToLower(line)
	for _, k := range financialKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func runeCount(s string) int { return utf8.RuneCountInString(s) }
