package xlsx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ErrSheetNotFound is returned when a requested sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrInvalidWorkbook is returned when the package is not a readable workbook.
var ErrInvalidWorkbook = errors.New("invalid workbook")

const relationshipsNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// Cell is one non-empty cell value.
type Cell struct {
	Ref   string
	Col   int
	Row   int
	Value string
}

// Workbook is an opened workbook. Close releases the underlying file.
type Workbook struct {
	files  map[string]*zip.File
	sheets []sheetEntry
	shared []string
	closer io.Closer
}

type sheetEntry struct {
	name string
	part string
}

// Open reads the workbook at path.
func Open(filePath string) (*Workbook, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}

	wb, err := newWorkbook(&zr.Reader)
	if err != nil {
		_ = zr.Close()
		return nil, err
	}
	wb.closer = zr
	return wb, nil
}

// OpenReader reads a workbook from an in-memory or seekable source.
func OpenReader(r io.ReaderAt, size int64) (*Workbook, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	return newWorkbook(zr)
}

// Close releases the workbook's file handle, if any.
func (w *Workbook) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.name
	}
	return names
}

// HasSheet reports whether a sheet with this exact name exists.
func (w *Workbook) HasSheet(name string) bool {
	_, ok := w.sheetPart(name)
	return ok
}

// Cells returns the non-empty cells of sheet inside rng, ordered by row then
// column.
func (w *Workbook) Cells(sheet string, rng Range) ([]Cell, error) {
	part, ok := w.sheetPart(sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	var ws xmlWorksheet
	if err := w.decode(part, &ws); err != nil {
		return nil, err
	}

	var cells []Cell
	for _, row := range ws.Rows {
		for _, c := range row.Cells {
			if c.Ref == "" {
				continue
			}
			col, rowNum, err := ParseRef(c.Ref)
			if err != nil || !rng.Contains(col, rowNum) {
				continue
			}
			value, err := w.cellValue(c)
			if err != nil {
				return nil, fmt.Errorf("sheet %q cell %s: %w", sheet, c.Ref, err)
			}
			if strings.TrimSpace(value) == "" {
				continue
			}
			cells = append(cells, Cell{Ref: CellName(col, rowNum), Col: col, Row: rowNum, Value: value})
		}
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	return cells, nil
}

func newWorkbook(zr *zip.Reader) (*Workbook, error) {
	w := &Workbook{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		w.files[strings.TrimPrefix(f.Name, "/")] = f
	}

	var book xmlWorkbook
	if err := w.decode("xl/workbook.xml", &book); err != nil {
		return nil, err
	}

	var rels xmlRelationships
	if err := w.decode("xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, rel := range rels.Items {
		targets[rel.ID] = resolvePart("xl", rel.Target)
	}

	for _, s := range book.Sheets {
		part, ok := targets[s.RelID]
		if !ok {
			return nil, fmt.Errorf("%w: sheet %q has no relationship", ErrInvalidWorkbook, s.Name)
		}
		w.sheets = append(w.sheets, sheetEntry{name: s.Name, part: part})
	}

	if _, ok := w.files["xl/sharedStrings.xml"]; ok {
		var sst xmlSharedStrings
		if err := w.decode("xl/sharedStrings.xml", &sst); err != nil {
			return nil, err
		}
		w.shared = make([]string, len(sst.Items))
		for i, si := range sst.Items {
			w.shared[i] = si.text()
		}
	}

	return w, nil
}

func (w *Workbook) sheetPart(name string) (string, bool) {
	for _, s := range w.sheets {
		if s.name == name {
			return s.part, true
		}
	}
	return "", false
}

func (w *Workbook) decode(name string, v any) error {
	f, ok := w.files[name]
	if !ok {
		return fmt.Errorf("%w: missing part %s", ErrInvalidWorkbook, name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrInvalidWorkbook, name, err)
	}
	defer func() { _ = rc.Close() }()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidWorkbook, name, err)
	}
	return nil
}

func (w *Workbook) cellValue(c xmlCell) (string, error) {
	switch c.Type {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || idx < 0 || idx >= len(w.shared) {
			return "", fmt.Errorf("%w: bad shared string index %q", ErrInvalidWorkbook, c.Value)
		}
		return w.shared[idx], nil
	case "inlineStr":
		return c.Inline.text(), nil
	case "b":
		if strings.TrimSpace(c.Value) == "1" {
			return "TRUE", nil
		}
		return "FALSE", nil
	default:
		return c.Value, nil
	}
}

// resolvePart resolves a relationship target against the directory of the
// part that declares it.
func resolvePart(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(base, target))
}

type xmlWorkbook struct {
	Sheets []struct {
		Name  string `xml:"name,attr"`
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xmlRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xmlSharedStrings struct {
	Items []xmlRichText `xml:"si"`
}

// xmlRichText is either a plain <t> or a sequence of runs <r><t>.
type xmlRichText struct {
	Text string `xml:"t"`
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

func (rt xmlRichText) text() string {
	if len(rt.Runs) == 0 {
		return rt.Text
	}
	var b strings.Builder
	b.WriteString(rt.Text)
	for _, r := range rt.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type xmlWorksheet struct {
	Rows []struct {
		Cells []xmlCell `xml:"c"`
	} `xml:"sheetData>row"`
}

type xmlCell struct {
	Ref    string      `xml:"r,attr"`
	Type   string      `xml:"t,attr"`
	Value  string      `xml:"v"`
	Inline xmlRichText `xml:"is"`
}
