package actionlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/core"
	"github.com/openagora/agora/internal/testutil"
)

var _ core.ActionLog = (*InMemoryStore)(nil)

func TestInMemoryStore_AppendAssignsSequence(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		a, err := core.NewSendMessageAction("cust-1", "biz-1", core.TextMessage{Content: "hi"})
		require.NoError(t, err)
		res, err := store.Append(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, int64(i), res.Seq)
	}

	records, err := store.Query(ctx, core.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Seq, "records must come back in append order")
	}
}

func TestInMemoryStore_Filters(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 2, 3.50).Build()
	testutil.MustSend(t, store, "cust-1", "biz-1", core.TextMessage{Content: "hello"})
	testutil.MustSend(t, store, "biz-1", "cust-1", proposal)
	testutil.MustSend(t, store, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	testutil.MustSendErrored(t, store, "cust-2", "biz-9", core.TextMessage{Content: "anyone there?"}, "unknown recipient biz-9")

	tests := []struct {
		name   string
		filter core.Filter
		want   int
	}{
		{"all", core.Filter{}, 4},
		{"sent by customer", core.Filter{AgentID: "cust-1", Direction: core.DirectionSent}, 2},
		{"received by business", core.Filter{AgentID: "biz-1", Direction: core.DirectionReceived}, 2},
		{"proposals only", core.Filter{MessageType: core.MessageTypeOrderProposal}, 1},
		{"by proposal id", core.Filter{ProposalID: "prop-1"}, 2},
		{"payments for proposal", core.Filter{ProposalID: "prop-1", MessageType: core.MessageTypePayment}, 1},
		{"success only", core.Filter{SuccessOnly: true}, 3},
		{"after seq", core.Filter{AfterSeq: 2}, 2},
		{"limit", core.Filter{Limit: 2}, 2},
		{"no match", core.Filter{ProposalID: "prop-404"}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records, err := store.Query(ctx, tc.filter)
			require.NoError(t, err)
			assert.Len(t, records, tc.want)
		})
	}
}

func TestInMemoryStore_ConcurrentAppends(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	const writers = 8
	const perWriter = 25
	done := make(chan struct{})
	for w := 0; w < writers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWriter; i++ {
				a, err := core.NewSendMessageAction("cust-1", "biz-1", core.TextMessage{Content: "x"})
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := store.Append(ctx, a); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	for w := 0; w < writers; w++ {
		<-done
	}

	records, err := store.Query(ctx, core.Filter{})
	require.NoError(t, err)
	require.Len(t, records, writers*perWriter)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Seq, "sequence numbers must be dense and ordered")
	}
}
