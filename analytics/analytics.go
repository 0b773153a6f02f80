// Package analytics implements the post-hoc analytics and validation engine.
//
// The engine runs once over the completed action log and produces per-agent
// utilities, market welfare, and a structural-validity report for every
// proposal. It is a pure function of the log: no mutation, repeatable, and
// each transaction is scored independently of the others.
package analytics

import (
	"context"
	"math"
	"sort"

	"github.com/openagora/agora/core"
)

// TotalPriceTolerance absorbs floating-point rounding when comparing a
// proposal's total against the sum of its lines. It is numeric slack, not a
// license for logical error.
const TotalPriceTolerance = 0.01

// Options configure the analytics engine.
type Options struct {
	// Experiment names the run in the report.
	Experiment string
	// FuzzyMatchDistance is the maximum edit distance tolerated when
	// resolving a proposal item name to a menu item name. Zero requires
	// exact matches.
	FuzzyMatchDistance int
}

// Engine computes the analytics report from an action log and the immutable
// agent profiles of the run.
type Engine struct {
	log        core.ActionLog
	businesses map[string]core.BusinessProfile
	customers  map[string]core.CustomerProfile
	experiment string
	fuzzy      int
}

// NewEngine constructs an analytics engine.
func NewEngine(log core.ActionLog, businesses []core.BusinessProfile, customers []core.CustomerProfile, optFns ...func(o *Options)) *Engine {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	e := &Engine{
		log:        log,
		businesses: make(map[string]core.BusinessProfile, len(businesses)),
		customers:  make(map[string]core.CustomerProfile, len(customers)),
		experiment: opts.Experiment,
		fuzzy:      opts.FuzzyMatchDistance,
	}
	for _, b := range businesses {
		e.businesses[b.ID] = b
	}
	for _, c := range customers {
		e.customers[c.ID] = c
	}
	return e
}

// proposalRecord is one successfully sent order proposal with its parties.
type proposalRecord struct {
	seq        int64
	proposal   core.OrderProposal
	businessID string
	customerID string
}

// paymentRecord is one successfully recorded payment with its parties.
type paymentRecord struct {
	seq        int64
	payment    core.Payment
	customerID string
	businessID string
}

// proposalKey identifies a proposal within its (business, customer) pair.
// Ids are only unique per pair, so bare ids never key anything.
type proposalKey struct {
	businessID string
	customerID string
	proposalID string
}

func (pr proposalRecord) key() proposalKey {
	return proposalKey{pr.businessID, pr.customerID, pr.proposal.ID}
}

// referencedProposal is the key of the proposal this payment settles.
func (p paymentRecord) referencedProposal() proposalKey {
	return proposalKey{p.businessID, p.customerID, p.payment.ProposalMessageID}
}

// scan is the single pass over the log feeding every downstream computation.
type scan struct {
	actionStats  map[string]int
	messageStats map[string]int

	proposals []proposalRecord
	payments  []paymentRecord

	// byKey resolves a pair-scoped proposal key to its most recent record;
	// earlier same-pair duplicates are superseded.
	byKey map[proposalKey]proposalRecord

	customerOrders   map[string][]proposalRecord
	customerPayments map[string][]paymentRecord
	messagesSent     map[string]int
	settledKeys      map[proposalKey]bool
}

// Report runs the engine over the full log.
func (e *Engine) Report(ctx context.Context) (*Report, error) {
	records, err := e.log.Query(ctx, core.Filter{})
	if err != nil {
		return nil, err
	}

	sc := newScan()
	for _, rec := range records {
		sc.observe(rec)
	}
	return e.collect(sc), nil
}

func newScan() *scan {
	return &scan{
		actionStats:      make(map[string]int),
		messageStats:     make(map[string]int),
		byKey:            make(map[proposalKey]proposalRecord),
		customerOrders:   make(map[string][]proposalRecord),
		customerPayments: make(map[string][]paymentRecord),
		messagesSent:     make(map[string]int),
		settledKeys:      make(map[proposalKey]bool),
	}
}

func (s *scan) observe(rec core.Record) {
	s.actionStats[rec.Action.Request.Name]++

	if rec.Action.Request.Name != core.ActionSendMessage || rec.Action.Result.IsError {
		return
	}
	params, err := core.SendMessageParamsOf(rec.Action)
	if err != nil {
		return
	}
	msg, err := params.DecodedMessage()
	if err != nil {
		return
	}

	s.messageStats[string(msg.Type())]++
	s.messagesSent[params.FromAgentID]++

	switch m := msg.(type) {
	case core.OrderProposal:
		pr := proposalRecord{seq: rec.Seq, proposal: m, businessID: params.FromAgentID, customerID: params.ToAgentID}
		s.proposals = append(s.proposals, pr)
		s.byKey[pr.key()] = pr
		s.customerOrders[params.ToAgentID] = append(s.customerOrders[params.ToAgentID], pr)
	case core.Payment:
		pay := paymentRecord{seq: rec.Seq, payment: m, customerID: params.FromAgentID, businessID: params.ToAgentID}
		s.payments = append(s.payments, pay)
		s.customerPayments[params.FromAgentID] = append(s.customerPayments[params.FromAgentID], pay)
		s.settledKeys[pay.referencedProposal()] = true
	}
}

func (e *Engine) collect(sc *scan) *Report {
	r := &Report{
		Experiment:       e.experiment,
		TotalCustomers:   len(e.customers),
		TotalBusinesses:  len(e.businesses),
		ActionBreakdown:  sc.actionStats,
		MessageBreakdown: sc.messageStats,

		CustomerUtilities: make(map[string]float64),
		BusinessRevenues:  make(map[string]float64),
		ValidationCounts:  make(map[FindingKind]int),

		ProposalsCreated: len(sc.proposals),
		PaymentsMade:     len(sc.payments),
	}
	for _, n := range sc.actionStats {
		r.TotalActions += n
	}
	for _, n := range sc.messageStats {
		r.TotalMessages += n
	}

	// Structural validation over every proposal; counts over settled ones.
	invalidKeys := make(map[proposalKey]bool)
	for _, pr := range sc.proposals {
		findings := e.checkProposal(pr)
		if len(findings) == 0 {
			continue
		}
		invalidKeys[pr.key()] = true
		r.Findings = append(r.Findings, findings...)
		if sc.settledKeys[pr.key()] {
			for _, f := range findings {
				r.ValidationCounts[f.Kind]++
			}
		}
	}
	r.TotalInvalidProposals = len(invalidKeys)
	for key := range invalidKeys {
		if sc.settledKeys[key] {
			r.InvalidProposalsPurchased++
		}
	}
	r.SettledTransactions = len(sc.settledKeys)

	// Business revenue: every validated payment credits the full proposal
	// total to the proposal's sender. Payments resolve within their own
	// (business, customer) pair so id reuse across pairs never crosses over.
	for _, pay := range sc.payments {
		pr, ok := sc.byKey[pay.referencedProposal()]
		if !ok {
			continue
		}
		r.BusinessRevenues[pr.businessID] = round2(r.BusinessRevenues[pr.businessID] + pr.proposal.TotalPrice)
	}

	// Customer utilities and summaries, in stable id order for repeatable
	// reports.
	for _, id := range sortedKeys(e.customers) {
		customer := e.customers[id]
		utility, needsMet := e.customerUtility(sc, customer)
		r.CustomerUtilities[id] = utility
		r.MarketWelfare = round2(r.MarketWelfare + utility)

		payments := len(sc.customerPayments[id])
		if payments > 0 {
			r.CustomersWhoPurchased++
		}
		if needsMet {
			r.CustomersWithNeedsMet++
		}
		r.CustomerSummaries = append(r.CustomerSummaries, CustomerSummary{
			CustomerID:        id,
			CustomerName:      customer.Name,
			MessagesSent:      sc.messagesSent[id],
			ProposalsReceived: len(sc.customerOrders[id]),
			PaymentsMade:      payments,
			Utility:           utility,
			NeedsMet:          needsMet,
		})
	}

	for _, id := range sortedKeys(e.businesses) {
		business := e.businesses[id]
		proposalsSent := 0
		for _, pr := range sc.proposals {
			if pr.businessID == id {
				proposalsSent++
			}
		}
		r.BusinessSummaries = append(r.BusinessSummaries, BusinessSummary{
			BusinessID:    id,
			BusinessName:  business.Name,
			MessagesSent:  sc.messagesSent[id],
			ProposalsSent: proposalsSent,
			Revenue:       r.BusinessRevenues[id],
		})
	}

	if len(sc.proposals) > 0 {
		total := 0.0
		for _, pr := range sc.proposals {
			total += pr.proposal.TotalPrice
		}
		avg := round2(total / float64(len(sc.proposals)))
		r.AverageProposalValue = &avg
	}
	if len(sc.payments) > 0 {
		total, n := 0.0, 0
		for _, pay := range sc.payments {
			if pr, ok := sc.byKey[pay.referencedProposal()]; ok {
				total += pr.proposal.TotalPrice
				n++
			}
		}
		if n > 0 {
			avg := round2(total / float64(n))
			r.AveragePaidOrderValue = &avg
		}
	}
	if len(e.customers) > 0 {
		r.PurchaseCompletionRate = round2(float64(r.CustomersWhoPurchased) / float64(len(e.customers)) * 100)
	}
	return r
}

// customerUtility computes one customer's utility and whether its needs were
// met. The match score is credited once, if any settled transaction
// satisfies every requested item and every required amenity; payments are
// charged in full regardless.
func (e *Engine) customerUtility(sc *scan, customer core.CustomerProfile) (float64, bool) {
	totalPayments := 0.0
	needsMet := false

	for _, pay := range sc.customerPayments[customer.ID] {
		pr, ok := sc.byKey[pay.referencedProposal()]
		if !ok {
			continue
		}
		totalPayments += pr.proposal.TotalPrice

		business, ok := e.businesses[pr.businessID]
		if !ok {
			continue
		}
		matched := e.resolveProposalItems(business, pr.proposal)
		if containsAll(matched, customer.WTP) && amenitiesMet(customer, business) {
			needsMet = true
		}
	}

	matchScore := 0.0
	if needsMet {
		for _, wtp := range customer.WTP {
			matchScore += wtp
		}
		matchScore *= 2
	}
	return round2(matchScore - totalPayments), needsMet
}

// resolveProposalItems maps the proposal's item names onto the business's
// menu item names. Exact matches bind first; remaining names pair greedily
// by ascending edit distance up to the configured tolerance, each menu item
// and proposal item binding at most once.
func (e *Engine) resolveProposalItems(business core.BusinessProfile, proposal core.OrderProposal) map[string]bool {
	menuItems := make(map[string]bool, len(business.Menu))
	for name := range business.Menu {
		menuItems[name] = true
	}
	proposalItems := make(map[string]bool, len(proposal.Items))
	for _, item := range proposal.Items {
		proposalItems[item.Name] = true
	}

	matched := make(map[string]bool)
	for name := range proposalItems {
		if menuItems[name] {
			matched[name] = true
			delete(menuItems, name)
			delete(proposalItems, name)
		}
	}
	if e.fuzzy <= 0 {
		return matched
	}

	type pair struct {
		distance int
		menu     string
		proposed string
	}
	var pairs []pair
	for menu := range menuItems {
		for proposed := range proposalItems {
			if d := foldDistance(menu, proposed); d <= e.fuzzy {
				pairs = append(pairs, pair{d, menu, proposed})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].distance != pairs[j].distance {
			return pairs[i].distance < pairs[j].distance
		}
		if pairs[i].menu != pairs[j].menu {
			return pairs[i].menu < pairs[j].menu
		}
		return pairs[i].proposed < pairs[j].proposed
	})
	for _, p := range pairs {
		if menuItems[p.menu] && proposalItems[p.proposed] {
			matched[p.menu] = true
			delete(menuItems, p.menu)
			delete(proposalItems, p.proposed)
		}
	}
	return matched
}

// checkProposal runs the independent structural checks against the sending
// business's menu.
func (e *Engine) checkProposal(pr proposalRecord) []Finding {
	business, ok := e.businesses[pr.businessID]
	if !ok {
		return nil
	}

	base := Finding{ProposalID: pr.proposal.ID, BusinessID: pr.businessID, CustomerID: pr.customerID}
	var findings []Finding
	calculated := 0.0

	for _, item := range pr.proposal.Items {
		calculated += item.UnitPrice * float64(item.Quantity)

		listed, resolved := e.resolveMenuItem(business, item.Name)
		if !resolved {
			f := base
			f.Kind = FindingInvalidMenuItem
			f.ItemName = item.Name
			f.ClosestMenuItem, f.ClosestDistance = closestMenuItem(business, item.Name)
			findings = append(findings, f)
			continue
		}
		if item.UnitPrice != listed {
			f := base
			f.Kind = FindingInvalidMenuItemPrice
			f.ItemName = item.Name
			f.ProposedPrice = item.UnitPrice
			f.ListedPrice = listed
			findings = append(findings, f)
		}
	}

	if math.Abs(pr.proposal.TotalPrice-calculated) > TotalPriceTolerance {
		f := base
		f.Kind = FindingInvalidTotalPrice
		f.ProposedTotal = pr.proposal.TotalPrice
		f.CalculatedTotal = round2(calculated)
		findings = append(findings, f)
	}
	return findings
}

// resolveMenuItem resolves one proposal item name to a menu price, exactly
// or within the fuzzy tolerance.
func (e *Engine) resolveMenuItem(business core.BusinessProfile, name string) (float64, bool) {
	if price, ok := business.Menu[name]; ok {
		return price, true
	}
	if e.fuzzy <= 0 {
		return 0, false
	}
	closest, distance := closestMenuItem(business, name)
	if closest == "" || distance > e.fuzzy {
		return 0, false
	}
	return business.Menu[closest], true
}

func closestMenuItem(business core.BusinessProfile, name string) (string, int) {
	best, bestDistance := "", -1
	for _, menu := range sortedKeys(business.Menu) {
		d := foldDistance(name, menu)
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = menu, d
		}
	}
	return best, bestDistance
}

func containsAll(matched map[string]bool, requested map[string]float64) bool {
	for name := range requested {
		if !matched[name] {
			return false
		}
	}
	return true
}

func amenitiesMet(customer core.CustomerProfile, business core.BusinessProfile) bool {
	for _, amenity := range customer.RequiredAmenities {
		if !business.Amenities[amenity] {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
