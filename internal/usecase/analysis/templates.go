package analysis

// Analysis types.
const (
	TypeComprehensive = "comprehensive"
	TypeDupont        = "dupont"
	TypeProfitability = "profitability"
	TypeDebt          = "debt"
	TypeEfficiency    = "efficiency"
	TypeGrowth        = "growth"
	TypeInvestment    = "investment"
	TypeCashflow      = "cashflow"
)

// Template is a named analysis instruction set.
type Template struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	Instructions string `json:"-"`
}

var templates = []Template{
	{
		Type:  TypeComprehensive,
		Title: "Comprehensive financial analysis",
		Instructions: `Produce a comprehensive financial analysis report with these sections:

# Comprehensive Financial Analysis

## 1. Executive summary
- Key findings and conclusions
- Overview of the main financial indicators
- Key risks
- Main recommendations

## 2. Profitability
- ROE = net profit / average net assets x 100%
- ROA = (net profit + interest expense) / average total assets x 100%
- Net profit margin = net profit / revenue x 100%
- Gross margin = (revenue - cost of sales) / revenue x 100%

## 3. Solvency
- Current ratio = current assets / current liabilities
- Quick ratio = (current assets - inventory) / current liabilities
- Debt-to-asset ratio = total liabilities / total assets x 100%
- Interest coverage = EBIT / interest expense

## 4. Operating efficiency
- Total asset turnover = revenue / average total assets
- Receivables and inventory turnover, in times and days

## 5. Growth
- Revenue, net profit, total asset and net asset growth rates

## 6. Cash flow
- Operating cash flow versus net profit
- Free cash flow = operating cash flow - capital expenditure

## 7. Risks and recommendations
- Financial, operating and liquidity risks with concrete recommendations`,
	},
	{
		Type:  TypeDupont,
		Title: "DuPont analysis",
		Instructions: `Perform a DuPont analysis that decomposes return on equity:

ROE = net profit margin x asset turnover x equity multiplier
    = (net profit / revenue) x (revenue / average total assets) x (average total assets / average net assets)

## 1. ROE level and trend
## 2. Net profit margin: cost structure, expense ratios, non-recurring items
## 3. Asset turnover: current and fixed asset turnover, asset allocation
## 4. Equity multiplier: leverage, debt-to-asset ratio, financial risk
## 5. Driver attribution: which factor explains the change in ROE
## 6. Recommendations to raise margin, turnover and optimise capital structure`,
	},
	{
		Type:  TypeProfitability,
		Title: "Profitability analysis",
		Instructions: `Analyse profitability in depth:

## 1. Profitability ratios
- ROE, ROA, gross margin, operating margin, net profit margin
- Cost-to-revenue and expense ratios (selling, administrative, financial)
## 2. Quality of earnings
- Share of recurring profit, non-recurring gains and losses
- Cash content of profit (operating cash flow / net profit)
## 3. Revenue and cost structure by product, segment or region where available
## 4. Trend and peer comparison where data allows
## 5. Recommendations to improve profitability`,
	},
	{
		Type:  TypeDebt,
		Title: "Solvency and debt analysis",
		Instructions: `Analyse solvency and debt structure:

## 1. Short-term solvency
- Current ratio, quick ratio, cash ratio = (cash + trading financial assets) / current liabilities
- Working capital = current assets - current liabilities
## 2. Long-term solvency
- Debt-to-asset ratio, equity multiplier, interest coverage
- Long-term asset fit = (equity + long-term liabilities) / long-term assets
## 3. Debt structure: maturity profile, interest-bearing debt, contingent liabilities
## 4. Financing capacity and pledged assets
## 5. Debt risk assessment and recommendations`,
	},
	{
		Type:  TypeEfficiency,
		Title: "Operating efficiency analysis",
		Instructions: `Analyse asset and operating efficiency:

## 1. Total asset turnover and turnover days (365 / turnover)
## 2. Current asset turnover, fixed asset turnover
## 3. Inventory turnover and days, inventory share of current assets
## 4. Receivables turnover and days, collection risk
## 5. Payables turnover and the cash conversion cycle
## 6. Efficiency of fixed and intangible assets
## 7. Recommendations on asset allocation and working capital`,
	},
	{
		Type:  TypeGrowth,
		Title: "Growth analysis",
		Instructions: `Analyse growth capability:

## 1. Revenue growth and its drivers
## 2. Profit growth: operating profit, net profit, recurring net profit
## 3. Asset growth: total, net, fixed and intangible assets; match between asset and revenue growth
## 4. Equity growth and capital accumulation
## 5. Sustainable growth rate = ROE x retention ratio
## 6. Growth quality, risks and outlook`,
	},
	{
		Type:  TypeInvestment,
		Title: "Investment value analysis",
		Instructions: `Assess investment value:

## 1. Valuation indicators where data allows: P/E, P/B, EV/EBITDA, dividend yield
## 2. Return on invested capital and returns on fixed asset investment
## 3. Investment activity: capital expenditure, acquisitions, financial investments
## 4. Asset allocation efficiency: operating versus financial assets, idle assets
## 5. Moat, competitive position and growth prospects
## 6. Key investment risks and an overall investment view`,
	},
	{
		Type:  TypeCashflow,
		Title: "Cash flow analysis",
		Instructions: `Analyse the cash flow statement:

## 1. Structure of operating, investing and financing cash flows
## 2. Operating cash flow quality
- Cash flow ratio = operating cash flow / current liabilities
- Cash to net profit = operating cash flow / net profit
- Sales cash ratio = cash received from sales / revenue x 100%
## 3. Cash flow trend and seasonality
## 4. Adequacy: cash sufficiency and reinvestment ratios
## 5. Free cash flow to firm and to equity
## 6. Cash conversion cycle and working capital management
## 7. Liquidity risk and recommendations for operating, investing and financing cash flows`,
	},
}

// Templates returns every analysis template in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// TemplateFor returns the template for typ, or the comprehensive template for unknown types.
func TemplateFor(typ string) Template {
	for _, t := range templates {
		if t.Type == typ {
			return t
		}
	}
	return templates[0]
}
