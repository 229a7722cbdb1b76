package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchGetValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doc-1/values:batchGet", r.URL.Path)
		assert.Equal(t, []string{"Open", "Pending"}, r.URL.Query()["ranges"])
		assert.Equal(t, "ROWS", r.URL.Query().Get("majorDimension"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck
		w.Write([]byte(`{
			"valueRanges": [
				{"range": "Open!A1:G3", "values": [["Name", "City"], ["Charlotte", "Charlotte"]]},
				{"range": "Pending!A1:G1", "values": [["Name", "City"]]}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	got, err := c.BatchGetValues(context.Background(), "doc-1", []string{"Open", "Pending"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Open!A1:G3", got[0].Range)
	require.Len(t, got[0].Values, 2)
	assert.Equal(t, []string{"Charlotte", "Charlotte"}, got[0].Values[1])
}

func TestBatchGetValuesCoercesCellTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"valueRanges": [{"range": "Data!A1:D1", "values": [[42, 3.5, true, "x"]]}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	got, err := c.BatchGetValues(context.Background(), "doc-1", []string{"Data"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"42", "3.5", "true", "x"}, got[0].Values[0])
}

func TestBatchGetValuesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "The caller does not have permission", "status": "PERMISSION_DENIED"}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.BatchGetValues(context.Background(), "doc-1", []string{"Open"})
	require.Error(t, err)

	assert.Equal(t, 403, StatusOf(err))
	assert.Contains(t, err.Error(), "PERMISSION_DENIED")
	assert.Contains(t, err.Error(), "does not have permission")
}

func TestBatchGetValuesNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable")) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.BatchGetValues(context.Background(), "doc-1", []string{"Open"})
	require.Error(t, err)
	assert.Equal(t, 502, StatusOf(err))
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestGetDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doc-1", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("fields"))

		//nolint:errcheck
		w.Write([]byte(`{
			"properties": {"title": "Master Index"},
			"sheets": [
				{"properties": {"title": "Open", "gridProperties": {"rowCount": 120}}},
				{"properties": {"title": "Pending", "gridProperties": {"rowCount": 30}}}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	doc, err := c.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "Master Index", doc.Title)
	require.Len(t, doc.Sheets, 2)
	assert.Equal(t, "Open", doc.Sheets[0].Title)
	assert.Equal(t, 120, doc.Sheets[0].RowCount)
}

func TestStatusOfNonAPIError(t *testing.T) {
	assert.Zero(t, StatusOf(assert.AnError))
	assert.Zero(t, StatusOf(nil))
}
