package prompt

import (
	"fmt"
	"strings"
)

// SchemaContext describes the dataset to the planner model.
type SchemaContext struct {
	Columns   []string
	Brands    []string
	Countries []string
	Regions   []string
	KPIs      []string
	Months    []string // oldest first
}

func (s SchemaContext) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Columns: %s\n", strings.Join(s.Columns, ", "))
	writeList(&sb, "Available Brands", s.Brands)
	writeList(&sb, "Available Countries", s.Countries)
	writeList(&sb, "Available Regions", s.Regions)
	writeList(&sb, "Available KPIs", s.KPIs)
	if len(s.Months) > 0 {
		fmt.Fprintf(&sb, "The available data covers the period from %s to %s.\n", s.Months[0], s.Months[len(s.Months)-1])
	}
	return sb.String()
}

func writeList(sb *strings.Builder, label string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(sb, "%s: %s\n", label, strings.Join(values, ", "))
	}
}

func BuildPlannerPrompt(question string, schema SchemaContext) string {
	return fmt.Sprintf(`
Your task is to act as a JSON generator. Your ONLY output must be a single, valid JSON object. Do not provide any other text or explanation.

The data table schema is:
%s
Analyze the following user question and generate a JSON object with these keys to query the table:
  "brand_text", "region", "country_text", "kpi_text", "leg_cat_text", "market_type_text", "months", "analysis_type".
- If a value isn't mentioned, set it to null.
- For "months", provide a list of strings in 'YYYY-MM' format, choosing only months inside the available range.
- Resolve "QTD", "YTD", "MTD" and quarter references to the matching months of the latest available year.
- "analysis_type" is one of "fact", "trend", "comparison", "dashboard".

User Question: "%s"
JSON Output:
`, schema.String(), question)
}

func BuildSimpleFactPrompt(question, aggregateJSON string) string {
	return fmt.Sprintf(`
You are a financial analyst answering a direct factual question.
Your ONLY output must be a single, valid JSON object with the key "text_answer".

User Question: "%s"
Pre-aggregated data:
%s

Instructions:
- Answer in one to three sentences with the exact figure(s) from the data, formatted with thousands separators.
- Do not speculate beyond the data. If the figure is not present, say so.
JSON Output:
`, question, aggregateJSON)
}

const chartInstructions = `2. **charts**: Generate a list of JSON objects defining charts to visualize your analysis.
    - Each chart object must contain: "chart_type", "title" and "data".
    - "chart_type" is one of: bar, line, pie, scatter, box, stacked_bar, waterfall, combination.
    - If the analysis involves both Revenue and Volume, create a single chart whose "data" rows have "label", "Revenue" and "Volume" keys. This becomes a combination chart.
    - To compare actuals against reforecast and prior year, use rows with "label", "actual", "rf" and "py".
    - For single-metric charts, rows have "label" and "value".
    - For scatter charts, rows have "x", "y" and optionally "label".
    - For box charts, "value" may be a list of numbers per label.
    - For waterfall charts, rows are ordered steps with "label" and a signed "value".`

func BuildInsightPrompt(question, dataJSON, benchmarkJSON string) string {
	var benchmark string
	if benchmarkJSON != "" {
		benchmark = fmt.Sprintf("\nBenchmark (whole dataset, same grouping):\n%s\n", benchmarkJSON)
	}
	return fmt.Sprintf(`
You are a financial analyst. Your task is to analyze the provided JSON data and answer the user's question.
Your ONLY output must be a single, valid JSON object with two keys: "text_answer" and "charts".

User Question: "%s"
Data:
%s
%s
Instructions:
1. **text_answer**: Write a comprehensive, multi-level analysis based on the data. Use markdown for formatting.
%s
JSON Output:
`, question, dataJSON, benchmark, chartInstructions)
}

func BuildBatchPrompt(question, dataJSON string, batch, total int) string {
	return fmt.Sprintf(`
You are a financial analyst reviewing part %d of %d of a larger dataset.
Your ONLY output must be a single, valid JSON object with two keys: "text_answer" and "charts".

User Question: "%s"
Data (this part only):
%s

Instructions:
1. **text_answer**: Summarize the key figures, movers and anomalies in this part. Be concise; another step will merge all parts.
%s
JSON Output:
`, batch, total, question, dataJSON, chartInstructions)
}

func BuildSynthesisPrompt(question, combinedAnalyses string, totalBatches int) string {
	return fmt.Sprintf(`
You are a senior financial analyst. The dataset for the question below was analyzed in %d parts.
Merge the partial analyses into one coherent executive report.
Your ONLY output must be a single, valid JSON object with two keys: "text_answer" and "charts".

User Question: "%s"
Partial analyses:
%s

Instructions:
1. **text_answer**: One consolidated report in markdown. Reconcile overlapping figures; do not repeat each part.
%s
    - Provide 2 to 3 charts for the consolidated view.
JSON Output:
`, totalBatches, question, combinedAnalyses, chartInstructions)
}
