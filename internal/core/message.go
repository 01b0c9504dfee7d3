package core

import (
	"fmt"
	"strings"

	"github.com/san-kum/boxclim/internal/dynamo"
	"github.com/san-kum/boxclim/internal/unitval"
)

// Kind is the message verb.
type Kind int

const (
	KindGet Kind = iota
	KindSet
	KindDump
)

func (k Kind) String() string {
	switch k {
	case KindGet:
		return "GET"
	case KindSet:
		return "SET"
	case KindDump:
		return "DUMP"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GET":
		return KindGet, nil
	case "SET":
		return KindSet, nil
	case "DUMP":
		return KindDump, nil
	}
	return 0, fmt.Errorf("%w: %q", dynamo.ErrUnknownMessage, s)
}

// Reserved variable names handled by the core for every component.
const (
	VarEnabled = "enabled"
	VarOutput  = "output"
)

// Message is the payload of a GET, SET or DUMP. Date is meaningful only when
// Dated is set.
type Message struct {
	Date  float64
	Dated bool
	Value unitval.Value
}

// Now asks for the current value.
func Now() Message { return Message{} }

// At asks for the value at date.
func At(date float64) Message { return Message{Date: date, Dated: true} }

// Value carries an undated value.
func Value(v unitval.Value) Message { return Message{Value: v} }

// ValueAt carries a value for date.
func ValueAt(date float64, v unitval.Value) Message {
	return Message{Date: date, Dated: true, Value: v}
}

func (m Message) String() string {
	if m.Dated {
		return fmt.Sprintf("%s @ %g", m.Value, m.Date)
	}
	return m.Value.String()
}
