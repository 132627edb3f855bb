package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.Acquisition("ok", 7, 1, 6, 2, 3*time.Second)
	m.Delivery("ok", 4, 1, time.Second)
	m.Cleaned(5)
	m.AcquisitionSkipped(SkipInProgress)
	m.AcquisitionSkipped(SkipLeaseHeld)
	m.AcquisitionSkipped(SkipLeaseHeld)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `jobalert_acquisition_runs_total{outcome="ok"} 1`)
	assert.Contains(t, text, "jobalert_postings_saved_total 6")
	assert.Contains(t, text, "jobalert_messages_sent_total 4")
	assert.Contains(t, text, "jobalert_records_cleaned_total 5")
	assert.Contains(t, text, `jobalert_acquisition_skipped_total{reason="in_progress"} 1`)
	assert.Contains(t, text, `jobalert_acquisition_skipped_total{reason="lease_held"} 2`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Acquisition("ok", 1, 0, 1, 0, time.Second)
		m.Delivery("error", 0, 0, time.Second)
		m.Cleaned(1)
		m.AcquisitionSkipped(SkipInProgress)
	})
}
