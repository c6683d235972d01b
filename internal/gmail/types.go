package gmail

type MessageID string
type LabelID string

// System label ids used by the purge workflows.
const (
	LabelInbox       LabelID = "INBOX"
	LabelPromotions  LabelID = "CATEGORY_PROMOTIONS"
	MaxPageSize              = 500
	DefaultPageSize          = 100
)

// Label mirrors the name/id pair returned by users.labels.list.
type Label struct {
	ID   LabelID
	Name string
	Type string // "system" or "user"
}

// Criteria is the filter shape understood by users.messages.list. Query and
// LabelIDs may both be set; the API ANDs them.
type Criteria struct {
	Query    string
	LabelIDs []LabelID
}

// Empty reports whether the criteria would match the whole mailbox.
func (c Criteria) Empty() bool {
	return c.Query == "" && len(c.LabelIDs) == 0
}

// ListPage is one page of users.messages.list.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

type ModifyOps struct {
	AddLabels    []LabelID
	RemoveLabels []LabelID
}
