package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

const wbMasterID = "mmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmmm"

func writeWorkbook(t *testing.T, path string, sheets map[string][][]string) {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, row := range rows {
			r := sheet.AddRow()
			for _, val := range row {
				r.AddCell().SetString(val)
			}
		}
	}
	require.NoError(t, f.Save(path))
}

func TestWorkbookFetchRanges(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master.xlsx")
	writeWorkbook(t, master, map[string][][]string{
		"Open": {
			{"Name", "City"},
			{"Charlotte", "Charlotte"},
		},
		"Pending": {
			{"Name", "City"},
		},
	})

	src := NewWorkbookSource(master, wbMasterID)
	ranges, err := src.FetchRanges(context.Background(), wbMasterID, []string{"Open", "Pending"})
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	assert.Equal(t, "Open", ranges[0].Name)
	require.Len(t, ranges[0].Rows, 2)
	assert.Equal(t, "Charlotte", ranges[0].Rows[1][0])
}

func TestWorkbookMissingTabIsEmpty(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master.xlsx")
	writeWorkbook(t, master, map[string][][]string{"Open": {{"Name"}}})

	src := NewWorkbookSource(master, wbMasterID)
	ranges, err := src.FetchRanges(context.Background(), wbMasterID, []string{"Closed"})
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Empty(t, ranges[0].Rows)
}

func TestWorkbookDetailDocumentResolution(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master.xlsx")
	writeWorkbook(t, master, map[string][][]string{"Open": {{"Name"}}})

	detailID := "dddddddddddddddddddddddddddddddddddddddddddd"
	writeWorkbook(t, filepath.Join(dir, detailID+".xlsx"), map[string][][]string{
		"Saint Data": {
			{"Number", "Legal", "Saint", "Feast"},
			{"1", "Bruce Legal", "Bruce", "3/14/2018"},
		},
	})

	src := NewWorkbookSource(master, wbMasterID)
	ranges, err := src.FetchRanges(context.Background(), detailID, []string{"Saint Data"})
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	require.Len(t, ranges[0].Rows, 2)
	assert.Equal(t, "Bruce", ranges[0].Rows[1][2])
}

func TestWorkbookMissingFileClassified(t *testing.T) {
	src := NewWorkbookSource(filepath.Join(t.TempDir(), "absent.xlsx"), wbMasterID)
	_, err := src.FetchRanges(context.Background(), wbMasterID, []string{"Open"})
	require.Error(t, err)
	// A missing workbook is not retryable.
	assert.False(t, IsRetryable(err))
}

func TestWorkbookDescribe(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master.xlsx")
	writeWorkbook(t, master, map[string][][]string{
		"Open":    {{"Name"}},
		"Pending": {{"Name"}},
	})

	src := NewWorkbookSource(master, wbMasterID)
	info, err := src.Describe(context.Background(), wbMasterID)
	require.NoError(t, err)
	assert.Equal(t, "master.xlsx", info.Title)
	assert.Len(t, info.Tabs, 2)
}

func TestWorkbookRangeTabPrefix(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "master.xlsx")
	writeWorkbook(t, master, map[string][][]string{"Open": {{"Name"}, {"Charlotte"}}})

	src := NewWorkbookSource(master, wbMasterID)
	ranges, err := src.FetchRanges(context.Background(), wbMasterID, []string{"Open!A1:B"})
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Len(t, ranges[0].Rows, 2)
}
