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
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

const docxBody = "word/document.xml"

// readDocx returns the paragraphs of a
// WordprocessingML document joined by
// newlines. Paragraphs containing only
// white space are skipped.
func readDocx(name string, buf []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	var body *zip.File
	for _, zf := range zr.File {
		if zf.Name == docxBody {
			body = zf
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%s: no %s in archive", name, docxBody)
	}
	f, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	defer f.Close()
	paras, err := docxParagraphs(f)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", name, docxBody, err)
	}
	return strings.Join(paras, "\n"), nil
}

func docxParagraphs(r io.Reader) ([]string, error) {
	var (
		out    []string
		cur    strings.Builder
		inPara bool
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "p":
				inPara = true
				cur.Reset()
			case "t":
				inText = true
			case "tab":
				if inPara {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					cur.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "p":
				if s := cur.String(); strings.TrimSpace(s) != "" {
					out = append(out, s)
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inPara && inText {
				cur.Write(tok)
			}
		}
	}
	return out, nil
}
