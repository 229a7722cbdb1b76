package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WorkbookSource serves ranges from a local xlsx workbook, standing in
// for the remote document during fixture runs. The document id is
// ignored for the master document; detail documents resolve to
// <dir>/<documentID>.xlsx next to the master workbook.
type WorkbookSource struct {
	masterPath string
	masterID   string
}

// NewWorkbookSource creates a source backed by the workbook at path.
// masterID is the document id that maps to the master workbook itself.
func NewWorkbookSource(path, masterID string) *WorkbookSource {
	return &WorkbookSource{masterPath: path, masterID: masterID}
}

func (w *WorkbookSource) pathFor(documentID string) string {
	if documentID == w.masterID || documentID == "" {
		return w.masterPath
	}
	return filepath.Join(filepath.Dir(w.masterPath), documentID+".xlsx")
}

func (w *WorkbookSource) FetchRanges(ctx context.Context, documentID string, ranges []string) ([]RangeData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := xlsx.OpenFile(w.pathFor(documentID))
	if err != nil {
		return nil, Classify(documentID, eris.Wrapf(err, "workbook: open %s", w.pathFor(documentID)))
	}

	out := make([]RangeData, 0, len(ranges))
	for _, r := range ranges {
		tab := tabName(r)
		sheet, ok := f.Sheet[tab]
		if !ok {
			// Missing tab mirrors the remote API's empty-range behavior.
			out = append(out, RangeData{Name: r})
			continue
		}

		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}
			rows = append(rows, cells)
		}
		out = append(out, RangeData{Name: r, Rows: rows})
	}
	return out, nil
}

func (w *WorkbookSource) Describe(ctx context.Context, documentID string) (*DocumentInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := xlsx.OpenFile(w.pathFor(documentID))
	if err != nil {
		return nil, Classify(documentID, eris.Wrapf(err, "workbook: open %s", w.pathFor(documentID)))
	}

	info := &DocumentInfo{ID: documentID, Title: filepath.Base(w.pathFor(documentID))}
	for _, sheet := range f.Sheets {
		info.Tabs = append(info.Tabs, sheet.Name)
	}
	return info, nil
}

// tabName extracts the sheet tab from an A1-style range like
// "Saint Data!A2:F".
func tabName(r string) string {
	if i := strings.Index(r, "!"); i >= 0 {
		return strings.Trim(r[:i], "'")
	}
	return r
}
