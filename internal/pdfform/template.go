// Package pdfform wraps pdfcpu access to a fillable template: opening,
// writing field values, locking fields and serializing back to bytes.
//
// Target templates are third-party AcroForms with an irregular field
// taxonomy, so everything here is modelled as "write literal text into a
// named field, tolerate the field being absent".
package pdfform

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// FieldNotFoundError reports a registry rule referencing a template field
// that the loaded template revision does not carry. Expected and non-fatal:
// templates are revision-controlled outside this system.
type FieldNotFoundError struct {
	Field string
}

func (e *FieldNotFoundError) Error() string {
	return fmt.Sprintf("template field %q not found", e.Field)
}

// Template is an open fillable document.
type Template struct {
	ctx      *model.Context
	acroForm types.Dict
	fields   map[string]types.Dict
}

// Open reads a fillable PDF and indexes its AcroForm fields by name.
func Open(rs io.ReadSeeker) (*Template, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// Plain objects keep filled values inspectable by downstream tooling.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	t := &Template{ctx: ctx, fields: make(map[string]types.Dict)}
	if err := t.indexFields(); err != nil {
		return nil, err
	}
	return t, nil
}

// indexFields walks the AcroForm Fields array and records every named field
// dictionary, including kids with their parent-qualified names.
func (t *Template) indexFields() error {
	rootDict, err := t.ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		// A template without fields is unusual but not an error; every
		// write against it reports FieldNotFoundError instead.
		return nil
	}

	acroFormDict, err := t.ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil
	}
	t.acroForm = acroFormDict

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil
	}
	fieldsArray, err := t.ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	for _, fieldRef := range fieldsArray {
		t.indexField(fieldRef, "")
	}
	return nil
}

func (t *Template) indexField(fieldObj types.Object, prefix string) {
	fieldDict, err := t.ctx.DereferenceDict(fieldObj)
	if err != nil || fieldDict == nil {
		return
	}

	name := ""
	if nameObj, found := fieldDict.Find("T"); found {
		if n, err := t.ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			name = n
		}
	}

	fullName := name
	if prefix != "" && name != "" {
		fullName = prefix + "." + name
	} else if prefix != "" {
		fullName = prefix
	}
	if fullName != "" {
		t.fields[fullName] = fieldDict
		// Templates in the wild are flat; the short name is kept as an
		// alias so rules do not need parent qualification.
		if _, taken := t.fields[name]; name != "" && !taken {
			t.fields[name] = fieldDict
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := t.ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kidsArray {
				t.indexField(kid, fullName)
			}
		}
	}
}

// FieldNames returns the names of all indexed fields, sorted.
func (t *Template) FieldNames() []string {
	names := make([]string, 0, len(t.fields))
	for name := range t.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasField reports whether the template carries the named field.
func (t *Template) HasField(name string) bool {
	_, ok := t.fields[name]
	return ok
}

// SetTextField writes value into the named field. The stale appearance
// stream is dropped and NeedAppearances raised so viewers regenerate the
// rendering from the new value.
func (t *Template) SetTextField(name, value string) error {
	fieldDict, ok := t.fields[name]
	if !ok {
		return &FieldNotFoundError{Field: name}
	}

	fieldDict["V"] = textStringObject(value)
	delete(fieldDict, "AP")

	if t.acroForm != nil {
		t.acroForm["NeedAppearances"] = types.Boolean(true)
	}
	return nil
}

// Lock sets the read-only flag on every field so the filled document is a
// static rendering.
func (t *Template) Lock() {
	seen := make(map[string]bool, len(t.fields))
	for _, fieldDict := range t.fields {
		// The alias map can hold the same dict twice.
		key := fmt.Sprintf("%p", fieldDict)
		if seen[key] {
			continue
		}
		seen[key] = true

		flags := types.Integer(0)
		if flagsObj, found := fieldDict.Find("Ff"); found {
			if f, err := t.ctx.DereferenceInteger(flagsObj); err == nil && f != nil {
				flags = *f
			}
		}
		fieldDict["Ff"] = flags | 1
	}
}

// PageCount returns the number of pages in the template.
func (t *Template) PageCount() int {
	return t.ctx.PageCount
}

// PageDim returns the media box dimensions of the 1-based page.
func (t *Template) PageDim(pageNum int) (width, height float64, err error) {
	if pageNum < 1 || pageNum > t.ctx.PageCount {
		return 0, 0, fmt.Errorf("invalid page number %d (document has %d pages)", pageNum, t.ctx.PageCount)
	}
	dims, err := t.ctx.PageDims()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	if pageNum > len(dims) {
		return 0, 0, fmt.Errorf("no dimensions for page %d", pageNum)
	}
	d := dims[pageNum-1]
	return d.Width, d.Height, nil
}

// Bytes serializes the (possibly modified) document.
func (t *Template) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(t.ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF context: %w", err)
	}
	return buf.Bytes(), nil
}

// textStringObject encodes value as a PDF text string. Literal strings are
// PDFDocEncoded, which covers ASCII only; anything beyond that must be
// UTF-16BE with a leading BOM, written here as a hex string.
func textStringObject(value string) types.Object {
	if isASCII(value) {
		return types.StringLiteral(escapeString(value))
	}

	units := utf16.Encode([]rune(value))
	buf := make([]byte, 0, 2+len(units)*2)
	buf = append(buf, 0xFE, 0xFF)
	for _, u := range units {
		buf = append(buf, byte(u>>8), byte(u))
	}
	return types.HexLiteral(strings.ToUpper(hex.EncodeToString(buf)))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

// escapeString escapes the characters with special meaning inside a PDF
// literal string.
func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
