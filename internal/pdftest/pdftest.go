// Package pdftest builds minimal in-memory PDF fixtures for tests. The
// documents are deliberately tiny: one page, a flat AcroForm with text
// widgets, no compression.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// Fillable returns a single-page PDF carrying one text form field per name.
func Fillable(fieldNames ...string) []byte {
	var objects []string

	// Object numbers: 1 catalog, 2 pages, 3 page, 4..3+n widgets, last font.
	fontObjNum := 4 + len(fieldNames)

	fieldRefs := ""
	for i := range fieldNames {
		fieldRefs += fmt.Sprintf("%d 0 R ", 4+i)
	}

	objects = append(objects, fmt.Sprintf(
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [%s] /DA (/Helv 0 Tf 0 g) /DR << /Font << /Helv %d 0 R >> >> >> >>",
		fieldRefs, fontObjNum))
	objects = append(objects, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	objects = append(objects, fmt.Sprintf(
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [%s] /Resources << /Font << /Helv %d 0 R >> >> >>",
		fieldRefs, fontObjNum))

	for i, name := range fieldNames {
		y := 700 - 30*i
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Annot /Subtype /Widget /FT /Tx /T (%s) /Rect [50 %d 300 %d] /DA (/Helv 12 Tf 0 g) /P 3 0 R >>",
			name, y, y+20))
	}

	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	return assemble(objects)
}

// assemble serializes numbered objects with a correct xref table.
func assemble(objects []string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefOffset)

	return buf.Bytes()
}

// SignaturePNG returns an encoded opaque PNG of the given size, usable as a
// signature image payload.
func SignaturePNG(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 20, G: 20, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
