package agora

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/actionlog"
	"github.com/openagora/agora/config"
	"github.com/openagora/agora/core"
	"github.com/openagora/agora/decider"
	"github.com/openagora/agora/internal/testutil"
	"github.com/openagora/agora/runner"
)

func TestRunAndAnalyze_FullTransaction(t *testing.T) {
	market := New(func(o *Options) {
		o.Experiment = "facade-smoke"
		o.MaxSteps = 8
		o.Concurrency = 2
	})

	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Taco", 1, 3.50).Build()

	// The business proposes unprompted on its first step. Its second Decide
	// call only happens after the step-1 sends were durably recorded, so
	// closing the channel there hands the customer a race-free signal.
	proposed := make(chan struct{})
	business := decider.DecideFunc(func(_ context.Context, state core.AgentState) (core.Decision, error) {
		if state.Step == 1 {
			return core.Decision{
				Kind:  core.DecideSendMessages,
				Sends: []core.OutboundMessage{{ToAgentID: "cust-alex", Message: proposal}},
			}, nil
		}
		select {
		case <-proposed:
		default:
			close(proposed)
		}
		return core.Decision{Kind: core.DecideEnd, Reason: "closing"}, nil
	})

	// The customer waits for the offer, then pays.
	paid := false
	customer := decider.DecideFunc(func(_ context.Context, state core.AgentState) (core.Decision, error) {
		if paid {
			return core.Decision{Kind: core.DecideEnd, Reason: "bought lunch"}, nil
		}
		for _, in := range state.NewMessages {
			if p, ok := in.Message.(core.OrderProposal); ok {
				paid = true
				return core.Decision{
					Kind:  core.DecideSendMessages,
					Sends: []core.OutboundMessage{{ToAgentID: in.FromAgentID, Message: testutil.PaymentFor(p.ID)}},
				}, nil
			}
		}
		<-proposed
		return core.Decision{Kind: core.DecideCheckMessages}, nil
	})

	profile := testutil.TacoPalace()
	profile.Amenities = map[string]bool{"vegan": true}
	market.AddBusiness(profile, business)
	market.AddCustomer(testutil.HungryAlex(), customer)

	ctx := context.Background()
	results, report, err := market.RunAndAnalyze(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.NotEqual(t, runner.StatusErrored, res.Status, "agent %s errored: %v", res.AgentID, res.Err)
	}

	assert.Equal(t, "facade-smoke", report.Experiment)
	assert.Equal(t, 1, report.SettledTransactions)
	assert.Equal(t, 3.50, report.BusinessRevenues["biz-taco"])
	// wtp 5.00 doubled, minus the 3.50 paid.
	assert.Equal(t, 6.50, report.CustomerUtilities["cust-alex"])
	assert.Equal(t, 6.50, report.MarketWelfare)
}

func TestFromExperiment(t *testing.T) {
	exp, err := config.Parse([]byte(`
name: from-config
max_steps: 5
concurrency: 2
businesses:
  - id: b1
    menu:
      Taco: 3.00
customers:
  - id: c1
    wtp:
      Taco: 5.00
`))
	require.NoError(t, err)

	market := FromExperiment(exp, nil, decider.NewMock())
	results := market.Run(context.Background())
	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, runner.StatusCompleted, res.Status)
		assert.Equal(t, 1, res.Steps, "an empty script ends on the first step")
	}

	report, err := market.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-config", report.Experiment)
	assert.Zero(t, report.SettledTransactions)
}

func TestRunAnalytics_OverExistingLog(t *testing.T) {
	store := actionlog.NewInMemoryStore()
	business := testutil.TacoPalace()
	customer := testutil.HungryAlex()

	proposal := testutil.NewProposalBuilder().ID("prop-1").Item("Tacoo", 1, 3.50).Build()
	testutil.MustSend(t, store, business.ID, customer.ID, proposal)
	testutil.MustSend(t, store, customer.ID, business.ID, testutil.PaymentFor("prop-1"))

	report, err := RunAnalytics(context.Background(), store,
		[]core.BusinessProfile{business}, []core.CustomerProfile{customer}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SettledTransactions)
	assert.Equal(t, 3.50, report.BusinessRevenues[business.ID])
}
