package source

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPages returns the text of each page in page order. Pages whose
// content streams carry no text are skipped.
func extractPages(data []byte) ([]string, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	var pages []string
	for nr := 1; nr <= pdfCtx.PageCount; nr++ {
		r, err := pdfcpu.ExtractPageContent(pdfCtx, nr)
		if err != nil || r == nil {
			continue
		}
		stream, err := io.ReadAll(r)
		if err != nil || len(stream) == 0 {
			continue
		}
		if text := textFromContentStream(stream); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no extractable text")
	}
	return pages, nil
}

var pdfLiteralRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// textFromContentStream pulls string literals out of the text-showing
// operators (Tj, TJ, ') of a page content stream and stitches them together
// using the positioning operators (Td, TD, T*) as word/line boundaries.
func textFromContentStream(stream []byte) string {
	var out bytes.Buffer

	for _, line := range bytes.Split(stream, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case len(line) == 0:
			continue
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeLiterals(&out, line, "")
		case bytes.HasSuffix(line, []byte("'")):
			writeLiterals(&out, line, "\n")
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if out.Len() > 0 {
				out.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			out.WriteByte('\n')
		}
	}

	return out.String()
}

func writeLiterals(out *bytes.Buffer, line []byte, prefix string) {
	for _, m := range pdfLiteralRe.FindAllSubmatch(line, -1) {
		text := unescapePDF(m[1])
		if text == "" {
			continue
		}
		out.WriteString(prefix)
		out.WriteString(text)
	}
}

// unescapePDF resolves the escape sequences allowed in PDF string literals,
// including up to three octal digits.
func unescapePDF(raw []byte) string {
	var out bytes.Buffer
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			out.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case '(', ')', '\\':
			out.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				out.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			out.WriteByte(byte(val))
		}
	}
	return out.String()
}
