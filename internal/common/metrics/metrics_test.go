package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("test")

	c.RecordCompletion("completed", 10*time.Millisecond)
	c.RecordCompletion("completed", 20*time.Millisecond)
	c.RecordCompletion("no_winner", time.Millisecond)
	c.RecordLaunch()
	c.RecordSweep(nil)
	c.RecordSweep(errors.New("down"))
	c.InFlightInc()
	c.InFlightInc()
	c.InFlightDec()
	c.RecordTicket(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.completions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.completions.WithLabelValues("no_winner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.launched))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sweeps.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tickets.WithLabelValues("ok")))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("")
	c.RecordCreated()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "giveaway_bot_giveaway_created_total 1")
}
