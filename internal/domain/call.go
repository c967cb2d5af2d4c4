package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StartTimeLayout is how a call's start time is rendered: the offset it was
// received in, always written numerically.
const StartTimeLayout = "2006-01-02T15:04:05-07:00"

var (
	// ErrMissingTimes is returned when an answered call lacks its answer or end time,
	// or an unanswered call carries one.
	ErrMissingTimes = errors.New("answer and end times must be present exactly when the call was answered")
	// ErrTimesOutOfOrder is returned when start <= answer <= end does not hold.
	ErrTimesOutOfOrder = errors.New("call timestamps are out of order")
)

// Call is one entry of a user's call history. It is immutable once built.
type Call struct {
	toURI    string
	toName   string
	fromURI  string
	fromName string
	answered bool
	outgoing bool

	startTime    time.Time
	answeredTime *time.Time // present iff answered
	endTime      *time.Time // present iff answered
}

// CallParams carries the raw values a Call is built from
type CallParams struct {
	ToURI        string
	ToName       string
	FromURI      string
	FromName     string
	Answered     bool
	Outgoing     bool
	StartTime    time.Time
	AnsweredTime *time.Time
	EndTime      *time.Time
}

// NewCall builds a Call, enforcing the presence and ordering of its timestamps
func NewCall(p CallParams) (Call, error) {
	if p.Answered != (p.AnsweredTime != nil) || p.Answered != (p.EndTime != nil) {
		return Call{}, ErrMissingTimes
	}
	if p.Answered {
		if p.AnsweredTime.Before(p.StartTime) {
			return Call{}, fmt.Errorf("%w: answered at %s before start at %s",
				ErrTimesOutOfOrder, p.AnsweredTime.Format(time.RFC3339), p.StartTime.Format(time.RFC3339))
		}
		if p.EndTime.Before(*p.AnsweredTime) {
			return Call{}, fmt.Errorf("%w: ended at %s before answer at %s",
				ErrTimesOutOfOrder, p.EndTime.Format(time.RFC3339), p.AnsweredTime.Format(time.RFC3339))
		}
	}

	c := Call{
		toURI:     p.ToURI,
		toName:    p.ToName,
		fromURI:   p.FromURI,
		fromName:  p.FromName,
		answered:  p.Answered,
		outgoing:  p.Outgoing,
		startTime: p.StartTime,
	}
	if p.Answered {
		answeredTime, endTime := *p.AnsweredTime, *p.EndTime
		c.answeredTime = &answeredTime
		c.endTime = &endTime
	}
	return c, nil
}

func (c Call) ToURI() string        { return c.toURI }
func (c Call) ToName() string       { return c.toName }
func (c Call) FromURI() string      { return c.fromURI }
func (c Call) FromName() string     { return c.fromName }
func (c Call) Answered() bool       { return c.answered }
func (c Call) Outgoing() bool       { return c.outgoing }
func (c Call) StartTime() time.Time { return c.startTime }

// AnsweredTime returns when the call was picked up; ok is false for unanswered calls
func (c Call) AnsweredTime() (t time.Time, ok bool) {
	if c.answeredTime == nil {
		return time.Time{}, false
	}
	return *c.answeredTime, true
}

// EndTime returns when the call terminated; ok is false for unanswered calls
func (c Call) EndTime() (t time.Time, ok bool) {
	if c.endTime == nil {
		return time.Time{}, false
	}
	return *c.endTime, true
}

// RingingTime is how long the call rang before being answered. Unanswered calls report zero.
func (c Call) RingingTime() time.Duration {
	if c.answeredTime == nil {
		return 0
	}
	return c.answeredTime.Sub(c.startTime)
}

// Duration is how long the call lasted once answered. Unanswered calls report zero.
func (c Call) Duration() time.Duration {
	if c.endTime == nil {
		return 0
	}
	return c.endTime.Sub(*c.answeredTime)
}

// String renders the call as a one-line summary
func (c Call) String() string {
	start := c.startTime.Format(StartTimeLayout)
	switch {
	case c.answered && c.outgoing:
		return fmt.Sprintf("Call to %s (%s) made at %s and lasting %s", c.toName, c.toURI, start, formatSeconds(c.Duration()))
	case c.answered:
		return fmt.Sprintf("Call from %s (%s) received at %s and lasting %s", c.fromName, c.fromURI, start, formatSeconds(c.Duration()))
	case c.outgoing:
		return fmt.Sprintf("Unanswered call to %s (%s) made at %s", c.toName, c.toURI, start)
	default:
		return fmt.Sprintf("Unanswered call from %s (%s) received at %s", c.fromName, c.fromURI, start)
	}
}

// formatSeconds writes d in seconds without trailing zeros: 5, 2.5
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

type callJSON struct {
	ToURI          string     `json:"to_uri"`
	ToName         string     `json:"to_name,omitempty"`
	FromURI        string     `json:"from_uri"`
	FromName       string     `json:"from_name,omitempty"`
	Answered       bool       `json:"answered"`
	Outgoing       bool       `json:"outgoing"`
	StartTime      time.Time  `json:"start_time"`
	AnsweredTime   *time.Time `json:"answered_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	RingingSeconds float64    `json:"ringing_seconds"`
	Duration       float64    `json:"duration_seconds"`
}

// MarshalJSON exposes the call, including its derived timings, for machine-readable output
func (c Call) MarshalJSON() ([]byte, error) {
	return json.Marshal(callJSON{
		ToURI:          c.toURI,
		ToName:         c.toName,
		FromURI:        c.fromURI,
		FromName:       c.fromName,
		Answered:       c.answered,
		Outgoing:       c.outgoing,
		StartTime:      c.startTime,
		AnsweredTime:   c.answeredTime,
		EndTime:        c.endTime,
		RingingSeconds: c.RingingTime().Seconds(),
		Duration:       c.Duration().Seconds(),
	})
}

// NoCallsMessage is what an empty history renders as
const NoCallsMessage = "No calls"

// CallHistory is an ordered, read-only list of calls in the order the server returned them
type CallHistory struct {
	calls []Call
}

// NewCallHistory builds a history from calls, copying the slice
func NewCallHistory(calls []Call) *CallHistory {
	owned := make([]Call, len(calls))
	copy(owned, calls)
	return &CallHistory{calls: owned}
}

// Len reports the number of calls
func (h *CallHistory) Len() int {
	return len(h.calls)
}

// At returns the i-th call. It panics if i is out of range, like a slice index.
func (h *CallHistory) At(i int) Call {
	return h.calls[i]
}

// All returns a copy of the calls
func (h *CallHistory) All() []Call {
	out := make([]Call, len(h.calls))
	copy(out, h.calls)
	return out
}

// String renders one line per call, or NoCallsMessage when empty
func (h *CallHistory) String() string {
	if len(h.calls) == 0 {
		return NoCallsMessage
	}
	lines := make([]string, len(h.calls))
	for i, c := range h.calls {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON renders the history as a JSON array
func (h *CallHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.calls)
}
