// certfill-inspect is an operator tool for vetting certificate templates
// before they are registered: it lists the fillable fields the filling
// engine will see and can preview extracted page text.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ledongpdf "github.com/ledongthuc/pdf"

	"github.com/fieldserve/certfill/internal/pdfform"
	"github.com/fieldserve/certfill/internal/registry"
)

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	showText     = flag.Bool("text", false, "Include extracted page text preview")
	checkForm    = flag.String("check", "", "Check field coverage against a registered form type")
	help         = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF template path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	result, err := inspect(pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error inspecting template: %v\n", err)
		os.Exit(1)
	}

	if err := outputResult(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Certfill Inspect - Vet PDF certificate templates")
	fmt.Println()
	fmt.Println("Lists the fillable AcroForm fields of a template, optionally previews")
	fmt.Println("page text, and checks field coverage against a registered form type.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format    Output format: text (default), json")
	fmt.Println("  -text      Include extracted page text preview")
	fmt.Println("  -check     Check field coverage against a form type, e.g. clearance-certificate-form")
	fmt.Println("  -help      Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  certfill-inspect clearance-certificate.pdf")
	fmt.Println("  certfill-inspect -check clearance-certificate-form clearance-certificate.pdf")
	fmt.Println("  certfill-inspect -format json -text liability.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  certfill-inspect [OPTIONS] <template.pdf>")
}

// InspectResult describes one template from the filling engine's view.
type InspectResult struct {
	FilePath    string    `json:"file_path"`
	PageCount   int       `json:"page_count"`
	PageWidth   float64   `json:"page_width"`
	PageHeight  float64   `json:"page_height"`
	FieldCount  int       `json:"field_count"`
	Fields      []string  `json:"fields"`
	TextPreview string    `json:"text_preview,omitempty"`
	Coverage    *Coverage `json:"coverage,omitempty"`
}

// Coverage reports which of a form type's mapped fields the template carries.
type Coverage struct {
	FormType string   `json:"form_type"`
	Present  []string `json:"present"`
	Missing  []string `json:"missing"`
}

func inspect(pdfPath string) (*InspectResult, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	tmpl, err := pdfform.Open(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	result := &InspectResult{
		FilePath:   absPath,
		PageCount:  tmpl.PageCount(),
		Fields:     tmpl.FieldNames(),
		FieldCount: len(tmpl.FieldNames()),
	}

	// The filler stamps signatures on the last page, so report its size.
	if w, h, err := tmpl.PageDim(tmpl.PageCount()); err == nil {
		result.PageWidth = w
		result.PageHeight = h
	}

	if *showText {
		result.TextPreview = extractTextPreview(raw)
	}

	if *checkForm != "" {
		cov, err := coverageFor(*checkForm, tmpl)
		if err != nil {
			return nil, err
		}
		result.Coverage = cov
	}

	return result, nil
}

// extractTextPreview pulls plain text from the first page, truncated
// for terminal display. Extraction failures are non-fatal here.
func extractTextPreview(raw []byte) string {
	reader, err := ledongpdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil || reader.NumPage() == 0 {
		return ""
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return ""
	}

	var sb strings.Builder
	for _, text := range page.Content().Text {
		sb.WriteString(text.S)
	}

	preview := strings.TrimSpace(sb.String())
	const maxPreview = 500
	if len(preview) > maxPreview {
		preview = preview[:maxPreview] + "..."
	}
	return preview
}

func coverageFor(formType string, tmpl *pdfform.Template) (*Coverage, error) {
	entry, err := registry.New().Lookup(formType)
	if err != nil {
		return nil, fmt.Errorf("unknown form type %q", formType)
	}

	cov := &Coverage{FormType: formType}
	for _, name := range mappedFields(entry) {
		if tmpl.HasField(name) {
			cov.Present = append(cov.Present, name)
		} else {
			cov.Missing = append(cov.Missing, name)
		}
	}
	return cov, nil
}

// mappedFields lists every concrete field name a form type's rules can
// write. Rating and multi-select rules expand to their full field sets.
func mappedFields(entry *registry.Entry) []string {
	var fields []string
	for _, rule := range entry.Rules {
		switch rule.Kind {
		case registry.RuleDirectText:
			fields = append(fields, rule.FieldID)
		case registry.RuleBinarySplit:
			fields = append(fields, rule.YesField, rule.NoField)
		case registry.RuleOrdinalRating:
			for v := rule.Min; v <= rule.Max; v++ {
				fields = append(fields, fmt.Sprintf(rule.FieldPattern, v))
			}
		case registry.RuleMultiSelect:
			for i := range rule.Items {
				fields = append(fields, fmt.Sprintf(rule.FieldPattern, i+1))
			}
		}
	}
	return fields
}

func outputResult(result *InspectResult) error {
	switch *outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		return outputText(result)
	default:
		return fmt.Errorf("unsupported output format: %s", *outputFormat)
	}
}

func outputText(result *InspectResult) error {
	fmt.Printf("Template: %s\n", result.FilePath)
	fmt.Printf("Pages: %d (last page %.1f x %.1f pt)\n", result.PageCount, result.PageWidth, result.PageHeight)
	fmt.Printf("Fillable fields: %d\n", result.FieldCount)
	fmt.Println()

	for i, name := range result.Fields {
		fmt.Printf("[%d] %s\n", i+1, name)
	}

	if result.Coverage != nil {
		fmt.Println()
		fmt.Printf("Coverage for %s:\n", result.Coverage.FormType)
		fmt.Printf("  Present: %d\n", len(result.Coverage.Present))
		fmt.Printf("  Missing: %d\n", len(result.Coverage.Missing))
		for _, name := range result.Coverage.Missing {
			fmt.Printf("    - %s\n", name)
		}
	}

	if result.TextPreview != "" {
		fmt.Println()
		fmt.Println("Text preview:")
		fmt.Println(result.TextPreview)
	}

	return nil
}

func init() {
	flag.Usage = printHelp
}
