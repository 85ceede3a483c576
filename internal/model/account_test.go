package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSortMessages(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		in   []Message
		want []string
	}{
		{name: "empty", in: nil, want: []string{}},
		{
			name: "distinct timestamps",
			in: []Message{
				{ID: "a", CreatedAt: base},
				{ID: "b", CreatedAt: base.Add(time.Second)},
				{ID: "c", CreatedAt: base.Add(2 * time.Second)},
			},
			want: []string{"c", "b", "a"},
		},
		{
			name: "out of order storage",
			in: []Message{
				{ID: "late", CreatedAt: base.Add(time.Minute)},
				{ID: "early", CreatedAt: base},
			},
			want: []string{"late", "early"},
		},
		{
			name: "ties fall back to reverse insertion",
			in: []Message{
				{ID: "first", CreatedAt: base},
				{ID: "second", CreatedAt: base},
				{ID: "older", CreatedAt: base.Add(-time.Second)},
			},
			want: []string{"second", "first", "older"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortMessages(tt.in)
			ids := make([]string, 0, len(got))
			for _, m := range got {
				ids = append(ids, m.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}

func TestSortMessages_DoesNotMutateInput(t *testing.T) {
	base := time.Now()
	in := []Message{{ID: "a", CreatedAt: base}, {ID: "b", CreatedAt: base.Add(time.Second)}}
	_ = SortMessages(in)
	require.Equal(t, "a", in[0].ID)
}

func TestAccountViewHidesSecrets(t *testing.T) {
	acc := &Account{ID: "1", Username: "alice", PasswordHash: "hash", VerifyCode: "123456", IsAcceptingMessages: true}
	view := acc.View()
	require.Equal(t, "alice", view.Username)
	require.True(t, view.IsAcceptingMessages)
}
