package purge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/mailpurge/internal/gmail"
)

func TestSelectionCriteria(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selection
		want    gmail.Criteria
		wantErr bool
	}{
		{
			name: "sender",
			sel:  Sender("sandor@condos.ca"),
			want: gmail.Criteria{Query: "from:sandor@condos.ca"},
		},
		{
			name: "query-passthrough",
			sel:  Query("is:unread older_than:30d"),
			want: gmail.Criteria{Query: "is:unread older_than:30d"},
		},
		{
			name: "label-id",
			sel:  LabelID(gmail.LabelPromotions),
			want: gmail.Criteria{LabelIDs: []gmail.LabelID{"CATEGORY_PROMOTIONS"}},
		},
		{name: "unresolved-label-name", sel: LabelName("ads"), wantErr: true},
		{name: "blank", sel: Sender("  "), wantErr: true},
		{name: "zero-value", sel: Selection{}, wantErr: true},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.sel.Criteria()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
