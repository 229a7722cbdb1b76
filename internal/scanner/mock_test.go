package scanner

import (
	"context"

	"github.com/MisterBeardy/saintcalendar-sub000/internal/source"
)

// fakeSource is a scriptable TabularSource for scanner tests.
type fakeSource struct {
	describeFn func(ctx context.Context, documentID string) (*source.DocumentInfo, error)
	fetchFn    func(ctx context.Context, documentID string, ranges []string) ([]source.RangeData, error)
}

func (f *fakeSource) Describe(ctx context.Context, documentID string) (*source.DocumentInfo, error) {
	if f.describeFn != nil {
		return f.describeFn(ctx, documentID)
	}
	return &source.DocumentInfo{ID: documentID, Title: "fixture"}, nil
}

func (f *fakeSource) FetchRanges(ctx context.Context, documentID string, ranges []string) ([]source.RangeData, error) {
	return f.fetchFn(ctx, documentID, ranges)
}

// rangesFor builds one RangeData per requested range name from a map of
// canned row matrices, mirroring how the remote API echoes each range.
func rangesFor(names []string, data map[string][][]string) []source.RangeData {
	out := make([]source.RangeData, 0, len(names))
	for _, name := range names {
		out = append(out, source.RangeData{Name: name, Rows: data[name]})
	}
	return out
}
