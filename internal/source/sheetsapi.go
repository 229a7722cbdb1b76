package source

import (
	"context"

	"github.com/MisterBeardy/saintcalendar-sub000/pkg/sheets"
)

// SheetsSource adapts the remote ranges API client to TabularSource,
// classifying its failures.
type SheetsSource struct {
	client sheets.Client
}

// NewSheetsSource wraps a sheets client.
func NewSheetsSource(client sheets.Client) *SheetsSource {
	return &SheetsSource{client: client}
}

func (s *SheetsSource) FetchRanges(ctx context.Context, documentID string, ranges []string) ([]RangeData, error) {
	vrs, err := s.client.BatchGetValues(ctx, documentID, ranges)
	if err != nil {
		return nil, Classify(documentID, err)
	}

	out := make([]RangeData, len(vrs))
	for i, vr := range vrs {
		name := vr.Range
		if i < len(ranges) {
			// The API echoes resolved A1 ranges; keep the requested name
			// so callers can match ranges positionally and by name.
			name = ranges[i]
		}
		out[i] = RangeData{Name: name, Rows: vr.Values}
	}
	return out, nil
}

func (s *SheetsSource) Describe(ctx context.Context, documentID string) (*DocumentInfo, error) {
	doc, err := s.client.GetDocument(ctx, documentID)
	if err != nil {
		return nil, Classify(documentID, err)
	}

	info := &DocumentInfo{ID: doc.ID, Title: doc.Title}
	for _, sh := range doc.Sheets {
		info.Tabs = append(info.Tabs, sh.Title)
	}
	return info, nil
}
