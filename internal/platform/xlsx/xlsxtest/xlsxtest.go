// Package xlsxtest writes minimal workbooks for tests.
package xlsxtest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"testing"
)

// Sheet describes one worksheet. Cells maps A1 references to text values;
// they are stored as shared strings.
type Sheet struct {
	Name  string
	Cells map[string]string
}

// Bytes renders sheets as an xlsx package.
func Bytes(sheets ...Sheet) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var shared []string
	index := map[string]int{}
	intern := func(s string) int {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = len(shared)
		shared = append(shared, s)
		return index[s]
	}

	var book, rels bytes.Buffer
	book.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>`)
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)

	for i, sh := range sheets {
		n := i + 1
		fmt.Fprintf(&book, `<sheet name="%s" sheetId="%d" r:id="rId%d"/>`, escape(sh.Name), n, n)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" `+
			`Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" `+
			`Target="worksheets/sheet%d.xml"/>`, n, n)

		refs := make([]string, 0, len(sh.Cells))
		for ref := range sh.Cells {
			refs = append(refs, ref)
		}
		sort.Strings(refs)

		var ws bytes.Buffer
		ws.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` +
			`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData><row>`)
		for _, ref := range refs {
			fmt.Fprintf(&ws, `<c r="%s" t="s"><v>%d</v></c>`, ref, intern(sh.Cells[ref]))
		}
		ws.WriteString(`</row></sheetData></worksheet>`)

		if err := writePart(zw, fmt.Sprintf("xl/worksheets/sheet%d.xml", n), ws.Bytes()); err != nil {
			return nil, err
		}
	}
	book.WriteString(`</sheets></workbook>`)
	rels.WriteString(`</Relationships>`)

	var sst bytes.Buffer
	fmt.Fprintf(&sst, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="%d">`, len(shared))
	for _, s := range shared {
		fmt.Fprintf(&sst, `<si><t>%s</t></si>`, escape(s))
	}
	sst.WriteString(`</sst>`)

	for name, data := range map[string][]byte{
		"xl/workbook.xml":            book.Bytes(),
		"xl/_rels/workbook.xml.rels": rels.Bytes(),
		"xl/sharedStrings.xml":       sst.Bytes(),
	} {
		if err := writePart(zw, name, data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders sheets to path, failing the test on error.
func Write(t testing.TB, path string, sheets ...Sheet) {
	t.Helper()
	data, err := Bytes(sheets...)
	if err != nil {
		t.Fatalf("failed to build workbook: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
}

func writePart(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func escape(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
