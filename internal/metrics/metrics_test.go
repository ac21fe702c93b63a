package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveField(t *testing.T) {
	before := FieldCount("start", OutcomeOverflow)
	ObserveField("start", OutcomeOverflow)
	ObserveField("start", OutcomeOverflow)
	assert.Equal(t, before+2, FieldCount("start", OutcomeOverflow))
}

func TestObserveRefresh(t *testing.T) {
	okBefore, errBefore := RefreshCount("ok"), RefreshCount("error")

	ObserveRefresh(nil, 12)
	ObserveRefresh(errors.New("offline"), 0)

	assert.Equal(t, okBefore+1, RefreshCount("ok"))
	assert.Equal(t, errBefore+1, RefreshCount("error"))
}

func TestHandler(t *testing.T) {
	ObserveRequest("/api/day", "400")
	ObserveRefresh(nil, 12)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `assesscal_http_requests_total{code="400",route="/api/day"}`)
	assert.Contains(t, body, "assesscal_snapshot_records 12")
}
