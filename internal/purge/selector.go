package purge

import (
	"fmt"
	"strings"

	"github.com/joshsymonds/mailpurge/internal/gmail"
)

// SelectionKind tags which field of a Selection is active.
type SelectionKind int

const (
	BySender SelectionKind = iota + 1
	ByQuery
	ByLabel     // Value is a provider label id
	ByLabelName // Value is a human label name; resolved before fetching
)

func (k SelectionKind) String() string {
	switch k {
	case BySender:
		return "sender"
	case ByQuery:
		return "query"
	case ByLabel:
		return "label-id"
	case ByLabelName:
		return "label"
	default:
		return fmt.Sprintf("SelectionKind(%d)", int(k))
	}
}

// Selection is the operator's intent: one sender, one free-text query or one
// label.
type Selection struct {
	Kind  SelectionKind
	Value string
}

func Sender(addr string) Selection { return Selection{Kind: BySender, Value: addr} }
func Query(q string) Selection { return Selection{Kind: ByQuery, Value: q} }
func LabelID(id gmail.LabelID) Selection { return Selection{Kind: ByLabel, Value: string(id)} }
func LabelName(name string) Selection { return Selection{Kind: ByLabelName, Value: name} }

// Criteria translates the selection into the listing filter. Query syntax is
// not checked here; Gmail rejects malformed queries itself.
func (s Selection) Criteria() (gmail.Criteria, error) {
	v := strings.TrimSpace(s.Value)
	if v == "" {
		return gmail.Criteria{}, fmt.Errorf("empty %s selection", s.Kind)
	}
	switch s.Kind {
	case BySender:
		return gmail.Criteria{Query: "from:" + v}, nil
	case ByQuery:
		return gmail.Criteria{Query: v}, nil
	case ByLabel:
		return gmail.Criteria{LabelIDs: []gmail.LabelID{gmail.LabelID(v)}}, nil
	case ByLabelName:
		return gmail.Criteria{}, fmt.Errorf("label %q must be resolved to an id first", v)
	default:
		return gmail.Criteria{}, fmt.Errorf("unknown selection kind %d", int(s.Kind))
	}
}

func (s Selection) String() string {
	return fmt.Sprintf("%s=%s", s.Kind, s.Value)
}
