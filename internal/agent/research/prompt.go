package research

import (
	"strings"
	"text/template"
)

var extractionTemplate = template.Must(template.New("extract").Parse(`You are an AI specialized in analyzing academic papers.

Your task:
Read the given text (from one page of a research paper) and output EXACTLY one line in TSV format with 8 columns in this exact order:

Title	Variables	Theories	Hypotheses	Methodology	Dataset(s)	Results	Limitation

===== RULES =====
1. Output only one single line with 8 columns, separated by tab characters.
2. If a field is not found, write exactly: Not Found (do NOT leave it blank).
3. If a column has multiple values, separate them with a semicolon (';') with no spaces around it.
4. Do NOT include quotes, explanations, bullet points or headers. Output just the raw TSV row.
5. Column meanings:
   - Title: full paper title (or the main topic if only a partial title is present).
   - Variables: all studied variables or factors (independent, dependent, control).
   - Theories: theories, models or conceptual frameworks used.
   - Hypotheses: research hypotheses or predictions stated in the text.
   - Methodology: research design or method (survey, experiment, case study).
   - Dataset(s): sample size, source, demographics of the data.
   - Results: main findings, correlations or conclusions.
   - Limitation: study limitations, weaknesses or constraints.
6. Do NOT add extra tabs or columns. The output has exactly 7 tabs.
{{- if .TitleHint}}
7. The paper title is already known. Use exactly "{{.TitleHint}}" for the Title column.
{{- end}}

===== Example Input =====
Employee Satisfaction and Productivity This study explores the relationship between employee satisfaction and productivity. Using Herzberg's Two-Factor Theory, we hypothesize that increased job satisfaction positively impacts productivity. Data were collected from 200 employees in the IT sector using a structured questionnaire. The findings show a strong correlation between satisfaction and productivity, but limitations include a small sample size and focus on only one sector.

===== Example Correct Output =====
Employee Satisfaction and Productivity	Employee satisfaction;Productivity	Herzberg's Two-Factor Theory	Job satisfaction positively impacts productivity	Survey research	200 employees in IT sector	Strong correlation found	Small sample size;Only one sector

===== Now process this text and produce ONLY the TSV line =====
{{.Text}}
`))

var aggregationTemplate = template.Must(template.New("aggregate").Parse(`You are an AI that aggregates multiple TSV rows extracted from different pages of the same research paper.

Your task:
Merge the given rows into ONE single TSV line with the same 8 columns in this exact order:

Title	Variables	Theories	Hypotheses	Methodology	Dataset(s)	Results	Limitation

===== RULES =====
1. Output only one single line with 8 columns, separated by tab characters.
{{- if .TitleHint}}
2. The Title column must be exactly "{{.TitleHint}}", even if rows carry different titles.
{{- else}}
2. The Title column is the most complete title found across the rows.
{{- end}}
3. For each other column, merge all unique non-empty values across rows, separated by a semicolon (';') with no spaces around it. Remove duplicates but keep different phrasings.
4. If a column has a value besides "Not Found" in any row, use that value instead of "Not Found".
5. If nothing was found for a column, write exactly: Not Found.
6. Do NOT include quotes, explanations, bullet points, headers or any preamble. Output just the raw TSV row.
7. Do NOT add extra tabs or columns. The output has exactly 7 tabs.

===== Rows to process =====
{{range .Rows}}{{.}}
{{end}}`))

// BuildExtractionPrompt renders the per-page extraction prompt. Identical
// inputs always produce identical prompts.
func BuildExtractionPrompt(pageText, titleHint string) (string, error) {
	var b strings.Builder
	err := extractionTemplate.Execute(&b, struct {
		Text      string
		TitleHint string
	}{Text: pageText, TitleHint: usableHint(titleHint)})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// BuildAggregationPrompt renders the cross-page merge prompt over TSV rows.
func BuildAggregationPrompt(rows []string, titleHint string) (string, error) {
	var b strings.Builder
	err := aggregationTemplate.Execute(&b, struct {
		Rows      []string
		TitleHint string
	}{Rows: rows, TitleHint: usableHint(titleHint)})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// CollapseWhitespace joins every run of whitespace into a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
