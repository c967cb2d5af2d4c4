package calllist

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"memento-client/internal/domain"
	"memento-client/internal/xmltree"
	apperrors "memento-client/pkg/errors"
)

// Fields are addressed by a path relative to the call element. Each kind of
// field has its own type so a field can only be read as what it is.
type (
	stringField    struct{ name, path string }
	boolField      struct{ name, path string }
	timestampField struct{ name, path string }
)

var (
	fieldToURI      = stringField{"to URI", "to/URI"}
	fieldToName     = stringField{"to name", "to/name"}
	fieldFromURI    = stringField{"from URI", "from/URI"}
	fieldFromName   = stringField{"from name", "from/name"}
	fieldAnswered   = boolField{"answered", "answered"}
	fieldOutgoing   = boolField{"outgoing", "outgoing"}
	fieldStartTime  = timestampField{"start-time", "start-time"}
	fieldAnswerTime = timestampField{"answer-time", "answer-time"}
	fieldEndTime    = timestampField{"end-time", "end-time"}
)

// timestampLayouts are tried in order. The memento server writes local wall
// clock time with no offset; such values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
}

// MapHistory builds the call history of a validated call-list document. Either
// every call is mapped or an error is returned.
func MapHistory(doc *xmltree.Document) (*domain.CallHistory, error) {
	nodes := doc.Root().FindAll("calls/call")
	calls := make([]domain.Call, 0, len(nodes))
	for i, n := range nodes {
		c, err := MapCall(n)
		if err != nil {
			return nil, fmt.Errorf("call %d: %w", i+1, err)
		}
		calls = append(calls, c)
	}
	return domain.NewCallHistory(calls), nil
}

// MapCall builds one Call from a call element
func MapCall(n *xmltree.Node) (domain.Call, error) {
	p := domain.CallParams{
		ToURI:    fieldToURI.read(n),
		ToName:   fieldToName.read(n),
		FromURI:  fieldFromURI.read(n),
		FromName: fieldFromName.read(n),
		Answered: fieldAnswered.read(n),
		Outgoing: fieldOutgoing.read(n),
	}

	var err error
	if p.StartTime, err = fieldStartTime.read(n); err != nil {
		return domain.Call{}, err
	}
	if p.Answered {
		answered, err := fieldAnswerTime.read(n)
		if err != nil {
			return domain.Call{}, err
		}
		ended, err := fieldEndTime.read(n)
		if err != nil {
			return domain.Call{}, err
		}
		p.AnsweredTime, p.EndTime = &answered, &ended
	}

	c, err := domain.NewCall(p)
	if err != nil {
		if errors.Is(err, domain.ErrTimesOutOfOrder) {
			return domain.Call{}, apperrors.Wrap(apperrors.ErrCodeTimestampParse, "call timestamps are inconsistent", err)
		}
		return domain.Call{}, apperrors.Wrap(apperrors.ErrCodeInternal, "cannot build call", err)
	}
	return c, nil
}

// read returns the text exactly as it appears in the document
func (f stringField) read(n *xmltree.Node) string {
	v, _ := n.FindText(f.path)
	return v
}

// read is true only for "1" or "true"; anything else, absence included, is false
func (f boolField) read(n *xmltree.Node) bool {
	v, _ := n.FindText(f.path)
	switch strings.TrimSpace(v) {
	case "1", "true":
		return true
	}
	return false
}

func (f timestampField) read(n *xmltree.Node) (time.Time, error) {
	raw, ok := n.FindText(f.path)
	if !ok {
		return time.Time{}, apperrors.TimestampParseError(f.name, "", errors.New("element is missing"))
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, apperrors.TimestampParseError(f.name, raw, err)
	}
	return t, nil
}

// ParseTimestamp reads a call-list timestamp
func ParseTimestamp(raw string) (time.Time, error) {
	v := strings.TrimSpace(raw)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
