// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// minimalPDF builds a document with one page
// per entry of pages, each showing its text in
// Helvetica; an empty entry is a blank page.
func minimalPDF(pages ...string) []byte {
	var objs []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		}
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestReadPdf(t *testing.T) {
	doc := minimalPDF("Hello PDF", "", "second page")
	text, err := Read("paper.pdf", bytes.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Hello PDF", "second page"} {
		if !strings.Contains(text, want) {
			t.Errorf("text %q lacks %q", text, want)
		}
	}
	// the blank page contributes nothing
	if strings.HasPrefix(text, "\n") || strings.Contains(text, "\n\n") {
		t.Errorf("blank page kept: %q", text)
	}
	if strings.Index(text, "Hello PDF") > strings.Index(text, "second page") {
		t.Errorf("pages out of order: %q", text)
	}
}

func TestReadPdfBlank(t *testing.T) {
	text, err := Read("blank.pdf", bytes.NewReader(minimalPDF("")))
	if err != nil {
		t.Fatal(err)
	}
	if text != "" {
		t.Fatalf("got %q from a blank page", text)
	}
}

func TestReadPdfMalformed(t *testing.T) {
	for _, doc := range []string{
		"not a pdf at all",
		"%PDF-1.4\n" + strings.Repeat("garbage ", 20) + "\n%%EOF\n",
	} {
		if _, err := Read("bad.pdf", strings.NewReader(doc)); err == nil {
			t.Errorf("%q: expected an error", doc)
		}
	}
}
