package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func ptr(v time.Time) *time.Time { return &v }

func answeredCall(t *testing.T, outgoing bool) Call {
	t.Helper()
	c, err := NewCall(CallParams{
		ToURI:        "sip:bob@x",
		ToName:       "Bob",
		FromURI:      "sip:alice@x",
		FromName:     "Alice",
		Answered:     true,
		Outgoing:     outgoing,
		StartTime:    ts(t, "2020-01-01T10:00:00+00:00"),
		AnsweredTime: ptr(ts(t, "2020-01-01T10:00:03+00:00")),
		EndTime:      ptr(ts(t, "2020-01-01T10:00:08+00:00")),
	})
	require.NoError(t, err)
	return c
}

func unansweredCall(t *testing.T, outgoing bool) Call {
	t.Helper()
	c, err := NewCall(CallParams{
		ToURI:     "sip:bob@x",
		ToName:    "Bob",
		FromURI:   "sip:alice@x",
		FromName:  "Alice",
		Outgoing:  outgoing,
		StartTime: ts(t, "2020-01-01T10:00:00+01:00"),
	})
	require.NoError(t, err)
	return c
}

func TestNewCall_AnsweredTimings(t *testing.T) {
	c := answeredCall(t, true)

	answered, ok := c.AnsweredTime()
	require.True(t, ok)
	end, ok := c.EndTime()
	require.True(t, ok)

	assert.True(t, ts(t, "2020-01-01T10:00:03Z").Equal(answered))
	assert.True(t, ts(t, "2020-01-01T10:00:08Z").Equal(end))
	assert.Equal(t, 3*time.Second, c.RingingTime())
	assert.Equal(t, 5*time.Second, c.Duration())
}

func TestNewCall_UnansweredReportsZeroSentinels(t *testing.T) {
	c := unansweredCall(t, false)

	_, ok := c.AnsweredTime()
	assert.False(t, ok)
	_, ok = c.EndTime()
	assert.False(t, ok)
	assert.Zero(t, c.RingingTime())
	assert.Zero(t, c.Duration())
}

func TestNewCall_PresenceInvariant(t *testing.T) {
	start := ts(t, "2020-01-01T10:00:00Z")
	later := ptr(start.Add(time.Second))

	tests := []struct {
		name   string
		params CallParams
	}{
		{"answered without times", CallParams{Answered: true, StartTime: start}},
		{"answered without end", CallParams{Answered: true, StartTime: start, AnsweredTime: later}},
		{"answered without answer time", CallParams{Answered: true, StartTime: start, EndTime: later}},
		{"unanswered with answer time", CallParams{StartTime: start, AnsweredTime: later}},
		{"unanswered with both", CallParams{StartTime: start, AnsweredTime: later, EndTime: later}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCall(tt.params)
			assert.ErrorIs(t, err, ErrMissingTimes)
		})
	}
}

func TestNewCall_OrderingInvariant(t *testing.T) {
	start := ts(t, "2020-01-01T10:00:00Z")

	_, err := NewCall(CallParams{
		Answered: true, StartTime: start,
		AnsweredTime: ptr(start.Add(-time.Second)), EndTime: ptr(start.Add(time.Second)),
	})
	assert.ErrorIs(t, err, ErrTimesOutOfOrder)

	_, err = NewCall(CallParams{
		Answered: true, StartTime: start,
		AnsweredTime: ptr(start.Add(2 * time.Second)), EndTime: ptr(start.Add(time.Second)),
	})
	assert.ErrorIs(t, err, ErrTimesOutOfOrder)
}

func TestNewCall_CopiesTimestamps(t *testing.T) {
	start := ts(t, "2020-01-01T10:00:00Z")
	answered := start.Add(time.Second)
	end := start.Add(2 * time.Second)

	c, err := NewCall(CallParams{Answered: true, StartTime: start, AnsweredTime: &answered, EndTime: &end})
	require.NoError(t, err)

	end = end.Add(time.Hour)
	assert.Equal(t, time.Second, c.Duration())
}

func TestCall_String(t *testing.T) {
	tests := []struct {
		name string
		call Call
		want string
	}{
		{"answered outgoing", answeredCall(t, true), "Call to Bob (sip:bob@x) made at 2020-01-01T10:00:00+00:00 and lasting 5"},
		{"answered incoming", answeredCall(t, false), "Call from Alice (sip:alice@x) received at 2020-01-01T10:00:00+00:00 and lasting 5"},
		{"unanswered outgoing", unansweredCall(t, true), "Unanswered call to Bob (sip:bob@x) made at 2020-01-01T10:00:00+01:00"},
		{"unanswered incoming", unansweredCall(t, false), "Unanswered call from Alice (sip:alice@x) received at 2020-01-01T10:00:00+01:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.call.String())
		})
	}
}

func TestCall_StringFractionalDuration(t *testing.T) {
	start := ts(t, "2020-01-01T10:00:00Z")
	c, err := NewCall(CallParams{
		Answered: true, Outgoing: true, StartTime: start,
		AnsweredTime: ptr(start), EndTime: ptr(start.Add(2500 * time.Millisecond)),
	})
	require.NoError(t, err)

	assert.Contains(t, c.String(), "lasting 2.5")
}

func TestCallHistory_Empty(t *testing.T) {
	h := NewCallHistory(nil)

	assert.Equal(t, 0, h.Len())
	assert.Equal(t, "No calls", h.String())
	assert.Empty(t, h.All())
}

func TestCallHistory_PreservesOrder(t *testing.T) {
	first, second := answeredCall(t, true), unansweredCall(t, false)
	h := NewCallHistory([]Call{first, second})

	require.Equal(t, 2, h.Len())
	assert.Equal(t, first, h.At(0))
	assert.Equal(t, second, h.At(1))
	assert.Equal(t, first.String()+"\n"+second.String(), h.String())
}

func TestCallHistory_IsolatedFromCallerSlices(t *testing.T) {
	calls := []Call{answeredCall(t, true)}
	h := NewCallHistory(calls)

	calls[0] = unansweredCall(t, false)
	all := h.All()
	all[0] = unansweredCall(t, true)

	assert.True(t, h.At(0).Answered())
	assert.Panics(t, func() { h.At(1) })
}

func TestCallHistory_MarshalJSON(t *testing.T) {
	h := NewCallHistory([]Call{answeredCall(t, true), unansweredCall(t, false)})

	raw, err := json.Marshal(h)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "sip:bob@x", decoded[0]["to_uri"])
	assert.Equal(t, 5.0, decoded[0]["duration_seconds"])
	assert.Equal(t, 3.0, decoded[0]["ringing_seconds"])
	assert.NotContains(t, decoded[1], "answered_time")
	assert.NotContains(t, decoded[1], "end_time")
}
