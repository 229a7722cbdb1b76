package scanner

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Rows come back from the tabular source as loosely-typed string slices
// with trailing blanks trimmed per row. Each entity kind gets a typed
// decoder that checks the shape before mapping columns positionally, so
// a malformed row fails fast instead of producing a half-populated
// record.

// Master index columns.
const (
	locColName = iota
	locColCity
	locColRegion
	locColAddress
	locColSourceID
	locColOpened
	locColClosed
	locMinCols = locColSourceID + 1
)

// Saint range columns.
const (
	saintColNumber = iota
	saintColLegalName
	saintColSaintName
	saintColFeastDate
	saintMinCols = saintColFeastDate + 1
)

// Historical range columns.
const (
	histColNumber = iota
	histColSaintName
	histColYear
	histColBurger
	histColTapBeers
	histColCanBeers
	histColEventLink
	histColSticker
	histMinCols = histColYear + 1
)

// Milestone range columns.
const (
	msColNumber = iota
	msColSaintName
	msColDate
	msColDescription
	msColSticker
	msMinCols = msColDescription + 1
)

// cell returns the trimmed cell at index i, or "" past the row's end.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// blankRow reports whether every cell is empty.
func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// checkShape validates the column count of a row against the decoder's
// minimum, returning a structured "unexpected shape" error.
func checkShape(kind string, row []string, minCols int) error {
	if len(row) < minCols {
		return eris.Errorf("%s row has unexpected shape: %d columns, want at least %d", kind, len(row), minCols)
	}
	return nil
}
