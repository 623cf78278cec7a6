package driftwatch

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRep struct {
	mock.Mock
	sent chan ReportReason
}

func newMockRep() *mockRep {
	return &mockRep{sent: make(chan ReportReason, 10)}
}

func (m *mockRep) Send(mon *Monitor, reason ReportReason) {
	m.Called()
	m.sent <- reason
}

func (m *mockRep) Wait() error {
	return nil
}

func (m *mockRep) await(t *testing.T, exp ReportReason) {
	t.Helper()
	select {
	case got := <-m.sent:
		assert.Equal(t, exp, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for report to be sent")
	}
}

func TestObserveTracksState(t *testing.T) {
	m, errs := New(ID("test"), Alpha("0.5"), Threshold("3.0"))
	if len(errs) > 0 {
		t.Fatalf("unexpected errors creating monitor: %v", errs)
	}
	mocks := newMockRep()
	m.report = mocks

	for _, v := range []float64{10, 10, 10, 10} {
		m.observe(v)
	}
	assert.Equal(t, 4, m.samplesTotal.Value())
	assert.Equal(t, 0, m.anomaliesTotal.Value())
	assert.Empty(t, m.Flagged)
	assert.Equal(t, []float64{10, 10, 10, 10}, m.history.Values())

	m.observe(100)
	assert.Equal(t, 5, m.samplesTotal.Value())
	assert.Equal(t, 1, m.anomaliesTotal.Value())
	assert.Len(t, m.Flagged, 1)
	assert.Equal(t, 100.0, m.Flagged[0].Value)
}

func TestObserveSkipsInvalidSamples(t *testing.T) {
	m, errs := New(ID("test"))
	if len(errs) > 0 {
		t.Fatalf("unexpected errors creating monitor: %v", errs)
	}
	m.report = newMockRep()

	m.observe(10)
	m.observe(math.NaN())
	m.observe(math.Inf(1))
	m.observe(11)

	// rejected samples affect neither the counters nor the detector
	assert.Equal(t, 2, m.samplesTotal.Value())
	assert.Equal(t, []float64{10, 11}, m.history.Values())
}

func TestAlertPolicyTripsAndRearms(t *testing.T) {
	m, errs := New(ID("test"),
		Alpha("0.5"),
		Threshold("3.0"),
		FreezeBaseline(),
		AlertQuantity("3"),
		AlertPeriod("150ms"),
	)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors creating monitor: %v", errs)
	}
	mocks := newMockRep()
	m.report = mocks
	mocks.On("Send").Return()

	// establish a frozen baseline at 10 with zero variance
	for i := 0; i < 5; i++ {
		m.observe(10)
	}
	assert.Equal(t, Clear, m.AlarmState())

	// each departure from the constant baseline is maximally anomalous
	m.observe(100)
	m.observe(101)
	assert.Equal(t, Clear, m.AlarmState())

	m.observe(102)
	assert.Equal(t, Alerting, m.AlarmState())
	mocks.await(t, AlertRate)

	// a full quiet alert period re-arms the alarm
	time.Sleep(200 * time.Millisecond)
	m.observe(10)
	assert.Equal(t, Clear, m.AlarmState())
	mocks.AssertExpectations(t)
}

func TestRunFromStdin(t *testing.T) {
	m, errs := New(ID("test"), Stdin(), Alpha("0.5"), Threshold("3.0"))
	if len(errs) > 0 {
		t.Fatalf("unexpected errors creating monitor: %v", errs)
	}
	mocks := newMockRep()
	mocks.On("Send").Return()
	m.report = mocks
	m.in = strings.NewReader("10\n10\n10\n10\nbogus\n100\n")

	err := m.Run(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, 5, m.samplesTotal.Value())
	assert.Equal(t, 1, m.anomaliesTotal.Value())
	mocks.await(t, StreamEnd)
}

func TestAlertRateExceeded(t *testing.T) {
	flags := func(n int, age time.Duration) []Flag {
		out := make([]Flag, n)
		for i := range out {
			out[i] = Flag{Value: 1.0, Time: time.Now().UTC().Add(-age)}
		}
		return out
	}
	tt := []struct {
		name     string
		flagged  []Flag
		quantity int
		period   time.Duration
		exp      bool
	}{
		{name: "under quantity", flagged: flags(2, 0), quantity: 3, period: time.Hour, exp: false},
		{name: "at quantity", flagged: flags(3, 0), quantity: 3, period: time.Hour, exp: true},
		{name: "stale flags excluded", flagged: flags(5, 2*time.Hour), quantity: 3, period: time.Hour, exp: false},
		{name: "zero period counts all", flagged: flags(3, 2*time.Hour), quantity: 3, period: 0, exp: true},
		{name: "zero quantity never trips", flagged: flags(10, 0), quantity: 0, period: time.Hour, exp: false},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, alertRateExceeded(tc.flagged, tc.quantity, tc.period))
		})
	}
}
