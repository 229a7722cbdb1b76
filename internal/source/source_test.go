package source

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/MisterBeardy/saintcalendar-sub000/pkg/sheets"
)

func apiErr(status int) error {
	return &sheets.APIError{StatusCode: status, Status: "ERROR", Message: "boom"}
}

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		kind   RemoteErrorKind
	}{
		{401, KindAccessDenied},
		{403, KindAccessDenied},
		{404, KindNotFound},
		{429, KindRateLimited},
		{500, KindOther},
	}
	for _, tc := range cases {
		err := Classify("doc-1", apiErr(tc.status))
		assert.Equal(t, tc.kind, KindOf(err), "status=%d", tc.status)
	}
}

func TestClassifyTimeout(t *testing.T) {
	err := Classify("doc-1", context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, Classify("doc-1", nil))
}

func TestClassifyPreservesChain(t *testing.T) {
	cause := apiErr(404)
	err := Classify("doc-1", cause)

	var re *RemoteError
	assert.True(t, eris.As(err, &re))
	assert.Equal(t, "doc-1", re.DocumentID)
	assert.Equal(t, 404, sheets.StatusOf(err))
	assert.Contains(t, err.Error(), "not_found")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Classify("d", apiErr(429))))
	assert.True(t, IsRetryable(Classify("d", context.DeadlineExceeded)))
	assert.True(t, IsRetryable(Classify("d", apiErr(503))))

	assert.False(t, IsRetryable(Classify("d", apiErr(403))))
	assert.False(t, IsRetryable(Classify("d", apiErr(404))))
	assert.False(t, IsRetryable(Classify("d", eris.New("schema mismatch"))))
}
