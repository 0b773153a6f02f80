package analytics

// CustomerSummary aggregates one customer's run.
type CustomerSummary struct {
	CustomerID        string  `json:"customer_id"`
	CustomerName      string  `json:"customer_name"`
	MessagesSent      int     `json:"messages_sent"`
	ProposalsReceived int     `json:"proposals_received"`
	PaymentsMade      int     `json:"payments_made"`
	Utility           float64 `json:"utility"`
	NeedsMet          bool    `json:"needs_met"`
}

// BusinessSummary aggregates one business's run.
type BusinessSummary struct {
	BusinessID    string  `json:"business_id"`
	BusinessName  string  `json:"business_name"`
	MessagesSent  int     `json:"messages_sent"`
	ProposalsSent int     `json:"proposals_sent"`
	Revenue       float64 `json:"revenue"`
}

// Report is the complete analytics output for one experiment. It is a pure
// function of the action log: running the engine twice over an unchanged log
// yields an identical report.
type Report struct {
	Experiment      string `json:"experiment"`
	TotalCustomers  int    `json:"total_customers"`
	TotalBusinesses int    `json:"total_businesses"`
	TotalActions    int    `json:"total_actions"`
	TotalMessages   int    `json:"total_messages"`

	ActionBreakdown  map[string]int `json:"action_breakdown"`
	MessageBreakdown map[string]int `json:"message_breakdown"`

	CustomerSummaries []CustomerSummary  `json:"customer_summaries"`
	BusinessSummaries []BusinessSummary  `json:"business_summaries"`
	CustomerUtilities map[string]float64 `json:"customer_utilities"`
	BusinessRevenues  map[string]float64 `json:"business_revenues"`

	// MarketWelfare is the sum of all customer utilities. Business revenue
	// is tracked separately and deliberately excluded.
	MarketWelfare float64 `json:"market_welfare"`

	SettledTransactions int `json:"settled_transactions"`
	ProposalsCreated    int `json:"proposals_created"`
	PaymentsMade        int `json:"payments_made"`

	ValidationCounts          map[FindingKind]int `json:"validation_counts"`
	Findings                  []Finding           `json:"findings"`
	TotalInvalidProposals     int                 `json:"total_invalid_proposals"`
	InvalidProposalsPurchased int                 `json:"invalid_proposals_purchased"`

	CustomersWhoPurchased  int      `json:"customers_who_purchased"`
	CustomersWithNeedsMet  int      `json:"customers_with_needs_met"`
	AverageProposalValue   *float64 `json:"average_proposal_value,omitempty"`
	AveragePaidOrderValue  *float64 `json:"average_paid_order_value,omitempty"`
	PurchaseCompletionRate float64  `json:"purchase_completion_rate"`
}
