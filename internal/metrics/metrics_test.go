// ABOUTME: Tests for session metrics
// ABOUTME: Drives the observer and result helpers and reads values back
package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-codec/pkg/transfer"
)

func TestObserverTracksActiveSessions(t *testing.T) {
	m := New()
	obs := m.Observer("encode")

	obs.OnStart(time.Now())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions.WithLabelValues("encode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsStarted.WithLabelValues("encode")))

	obs.OnProgress(42, 3)
	assert.Equal(t, 42.0, testutil.ToFloat64(m.Progress.WithLabelValues("encode")))

	obs.OnFailed(errors.New("boom"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSessions.WithLabelValues("encode")))
}

func TestObserveResult(t *testing.T) {
	m := New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	m.ObserveResult("decode", transfer.Result{
		Outcome:  transfer.Completed,
		Started:  start,
		Finished: start.Add(2 * time.Second),
		Frames:   48000,
	})
	m.ObserveResult("decode", transfer.Result{
		Outcome: transfer.Stopped,
		Frames:  100,
		Warning: &transfer.SinkCloseWarning{Err: errors.New("flush")},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsFinished.WithLabelValues("decode", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsFinished.WithLabelValues("decode", "stopped")))
	assert.Equal(t, 48100.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionWarnings.WithLabelValues("decode")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SessionDuration))
}

func TestObserveFill(t *testing.T) {
	m := New()
	m.ObserveFill(1024)
	m.ObserveFill(512)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecoderFills))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveFill(128)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "resonate_codec_decoder_fills_total 1"), body)
}
