package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/actionlog"
	"github.com/openagora/agora/core"
	"github.com/openagora/agora/internal/testutil"
)

func newTestMarket(t *testing.T) (*Marketplace, *actionlog.InMemoryStore) {
	t.Helper()
	store := actionlog.NewInMemoryStore()
	m := New(store)
	m.Register(core.AgentInfo{ID: "biz-1", Role: core.RoleBusiness})
	m.Register(core.AgentInfo{ID: "biz-2", Role: core.RoleBusiness})
	m.Register(core.AgentInfo{ID: "cust-1", Role: core.RoleCustomer})
	m.Register(core.AgentInfo{ID: "cust-2", Role: core.RoleCustomer})
	return m, store
}

func TestSendMessage_RecordsText(t *testing.T) {
	m, store := newTestMarket(t)
	ctx := context.Background()

	rec, err := m.SendMessage(ctx, "cust-1", "biz-1", core.TextMessage{Content: "hello"})
	require.NoError(t, err)
	assert.False(t, rec.Action.Result.IsError)
	assert.Equal(t, 1, store.Len())
}

func TestSendMessage_UnknownRecipient(t *testing.T) {
	m, store := newTestMarket(t)
	ctx := context.Background()

	_, err := m.SendMessage(ctx, "cust-1", "biz-404", core.TextMessage{Content: "anyone?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	// The rejection is still part of the audit trail.
	require.Equal(t, 1, store.Len())
	records, err := store.Query(ctx, core.Filter{})
	require.NoError(t, err)
	assert.True(t, records[0].Action.Result.IsError)
}

func TestPayment_Settles(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 2, 3.50).Build()
	_, err := m.SendMessage(ctx, "biz-1", "cust-1", proposal)
	require.NoError(t, err)

	status, err := m.Status(ctx, "biz-1", "cust-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)

	_, err = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	require.NoError(t, err)

	status, err = m.Status(ctx, "biz-1", "cust-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, status)
}

func TestPayment_ProposalNotFound(t *testing.T) {
	m, store := newTestMarket(t)
	ctx := context.Background()

	before := store.Len()
	_, err := m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-404"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProposalNotFound)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "prop-404", verr.ProposalID)

	// The failed payment is appended as an errored record and nothing else
	// changed: no proposal state exists for the id.
	assert.Equal(t, before+1, store.Len())
	_, err = m.Status(ctx, "biz-1", "cust-1", "prop-404")
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestPayment_WrongCounterparty(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 1, 3.50).Build()
	_, err := m.SendMessage(ctx, "biz-1", "cust-1", proposal)
	require.NoError(t, err)

	// A different customer cannot pay someone else's proposal.
	_, err = m.SendMessage(ctx, "cust-2", "biz-1", testutil.PaymentFor("prop-1"))
	assert.ErrorIs(t, err, ErrWrongCounterparty)

	// The intended customer paying a party that never sent the proposal finds
	// nothing there to settle.
	_, err = m.SendMessage(ctx, "cust-1", "cust-2", testutil.PaymentFor("prop-1"))
	assert.ErrorIs(t, err, ErrProposalNotFound)
}

func TestPayment_Expired(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 1, 3.50).ExpiresAt(past).Build()
	_, err := m.SendMessage(ctx, "biz-1", "cust-1", proposal)
	require.NoError(t, err)

	_, err = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	assert.ErrorIs(t, err, ErrProposalExpired)

	status, err := m.Status(ctx, "biz-1", "cust-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, status)
}

func TestPayment_ExpiryUsesInjectedClock(t *testing.T) {
	store := actionlog.NewInMemoryStore()
	clock := time.Now().UTC()
	m := New(store, func(o *Options) {
		o.Now = func() time.Time { return clock }
	})
	m.Register(core.AgentInfo{ID: "biz-1", Role: core.RoleBusiness})
	m.Register(core.AgentInfo{ID: "cust-1", Role: core.RoleCustomer})
	ctx := context.Background()

	// The proposal is still valid on the wall clock; only the injected clock
	// has moved past the expiry, and that is the one the validator must use.
	expiry := time.Now().UTC().Add(time.Hour)
	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 1, 3.50).ExpiresAt(expiry).Build()
	_, err := m.SendMessage(ctx, "biz-1", "cust-1", proposal)
	require.NoError(t, err)

	clock = expiry.Add(time.Minute)
	_, err = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	assert.ErrorIs(t, err, ErrProposalExpired)

	status, err := m.Status(ctx, "biz-1", "cust-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, status)
}

func TestPayment_NoExpiryNeverExpires(t *testing.T) {
	store := actionlog.NewInMemoryStore()
	farFuture := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(store, func(o *Options) {
		o.Now = func() time.Time { return farFuture }
	})
	m.Register(core.AgentInfo{ID: "biz-1", Role: core.RoleBusiness})
	m.Register(core.AgentInfo{ID: "cust-1", Role: core.RoleCustomer})
	ctx := context.Background()

	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 1, 3.50).Build()
	_, err := m.SendMessage(ctx, "biz-1", "cust-1", proposal)
	require.NoError(t, err)

	status, err := m.Status(ctx, "biz-1", "cust-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)
}

func TestPayment_AlreadySettled(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 2, 3.50).Build()
	_, err := m.SendMessage(ctx, "biz-1", "cust-1", proposal)
	require.NoError(t, err)

	_, err = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	require.NoError(t, err)

	_, err = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestPayment_AtMostOnceUnderConcurrency(t *testing.T) {
	m, store := newTestMarket(t)
	ctx := context.Background()

	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 2, 3.50).Build()
	_, err := m.SendMessage(ctx, "biz-1", "cust-1", proposal)
	require.NoError(t, err)

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
		}(i)
	}
	wg.Wait()

	accepted := 0
	settledRejections := 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrAlreadySettled):
			settledRejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, accepted, "exactly one payment may settle the proposal")
	assert.Equal(t, attempts-1, settledRejections)

	settled, err := store.Query(ctx, core.Filter{
		MessageType: core.MessageTypePayment,
		ProposalID:  "prop-1",
		SuccessOnly: true,
	})
	require.NoError(t, err)
	assert.Len(t, settled, 1)
}

func TestDuplicateProposalID_SamePairMostRecentWins(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	expired := time.Now().UTC().Add(-time.Hour)
	first := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 1, 3.50).ExpiresAt(expired).Build()
	_, err := m.SendMessage(ctx, "biz-1", "cust-1", first)
	require.NoError(t, err)

	// A reissued proposal to the same customer supersedes the first; the
	// payment validates against the reissue, not the expired original.
	second := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 3, 3.50).Build()
	_, err = m.SendMessage(ctx, "biz-1", "cust-1", second)
	require.NoError(t, err)

	_, err = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	assert.NoError(t, err)
}

func TestDuplicateProposalID_DistinctCustomersSettleIndependently(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	// Ids are only unique per (business, customer) pair, so the same business
	// handing the same id to two customers creates two independent proposals.
	_, err := m.SendMessage(ctx, "biz-1", "cust-1",
		testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 1, 3.50).Build())
	require.NoError(t, err)
	_, err = m.SendMessage(ctx, "biz-1", "cust-2",
		testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 3, 3.50).Build())
	require.NoError(t, err)

	_, err = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	assert.NoError(t, err)
	_, err = m.SendMessage(ctx, "cust-2", "biz-1", testutil.PaymentFor("prop-1"))
	assert.NoError(t, err)

	status, err := m.Status(ctx, "biz-1", "cust-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, status)
	status, err = m.Status(ctx, "biz-1", "cust-2", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, status)
}

func TestDuplicateProposalID_DistinctBusinessesSettleIndependently(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	_, err := m.SendMessage(ctx, "biz-1", "cust-1",
		testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 1, 3.50).Build())
	require.NoError(t, err)
	_, err = m.SendMessage(ctx, "biz-2", "cust-2",
		testutil.NewProposalBuilder().ID("prop-1").Item("Burrito", 1, 8.00).Build())
	require.NoError(t, err)

	// Each customer settles against the proposal their own business sent,
	// regardless of which pair recorded the id last.
	_, err = m.SendMessage(ctx, "cust-1", "biz-1", testutil.PaymentFor("prop-1"))
	assert.NoError(t, err)
	_, err = m.SendMessage(ctx, "cust-2", "biz-2", testutil.PaymentFor("prop-1"))
	assert.NoError(t, err)

	status, err := m.Status(ctx, "biz-1", "cust-1", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, status)
	status, err = m.Status(ctx, "biz-2", "cust-2", "prop-1")
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, status)
}

func TestFetchMessages_CursorAndOrder(t *testing.T) {
	m, _ := newTestMarket(t)
	ctx := context.Background()

	_, err := m.SendMessage(ctx, "cust-1", "biz-1", core.TextMessage{Content: "first"})
	require.NoError(t, err)
	_, err = m.SendMessage(ctx, "cust-2", "biz-1", core.TextMessage{Content: "second"})
	require.NoError(t, err)

	inbound, lastSeq, err := m.FetchMessages(ctx, "biz-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, inbound, 2)
	assert.Equal(t, "cust-1", inbound[0].FromAgentID)
	assert.Equal(t, "cust-2", inbound[1].FromAgentID)
	assert.Equal(t, inbound[1].Seq, lastSeq)

	// Nothing new behind the cursor.
	inbound, next, err := m.FetchMessages(ctx, "biz-1", lastSeq, 0)
	require.NoError(t, err)
	assert.Empty(t, inbound)
	assert.Equal(t, lastSeq, next)

	// A later message shows up after the cursor.
	_, err = m.SendMessage(ctx, "cust-1", "biz-1", core.TextMessage{Content: "third"})
	require.NoError(t, err)
	inbound, _, err = m.FetchMessages(ctx, "biz-1", lastSeq, 0)
	require.NoError(t, err)
	require.Len(t, inbound, 1)
	if text, ok := inbound[0].Message.(core.TextMessage); assert.True(t, ok) {
		assert.Equal(t, "third", text.Content)
	}
}

func TestFetchMessages_RecordsFetchAction(t *testing.T) {
	m, store := newTestMarket(t)
	ctx := context.Background()

	_, _, err := m.FetchMessages(ctx, "biz-1", 0, 0)
	require.NoError(t, err)

	records, err := store.Query(ctx, core.Filter{ActionKind: core.ActionFetchMessages})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "biz-1", records[0].Action.AgentID)
}

func TestEnd_RecordsTermination(t *testing.T) {
	m, store := newTestMarket(t)
	ctx := context.Background()

	require.NoError(t, m.End(ctx, "cust-1", "satisfied"))

	records, err := store.Query(ctx, core.Filter{ActionKind: core.ActionEnd})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "cust-1", records[0].Action.AgentID)
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := reject(ErrAlreadySettled, "prop-1", "settled by action %s", "a-1")
	assert.ErrorIs(t, verr, ErrAlreadySettled)
	assert.Contains(t, verr.Error(), "prop-1")
}
