package analytics

// FindingKind classifies a structural-validity finding on a proposal. All
// findings are advisory: they are reported in aggregate and never block a
// settlement that already occurred.
type FindingKind string

const (
	// FindingInvalidMenuItem flags a proposal item whose name resolves to no
	// menu item within the configured fuzzy tolerance.
	FindingInvalidMenuItem FindingKind = "invalid_menu_item"
	// FindingInvalidMenuItemPrice flags a resolved item whose unit price
	// differs from the business's listed price.
	FindingInvalidMenuItemPrice FindingKind = "invalid_menu_item_price"
	// FindingInvalidTotalPrice flags a total price out of numeric tolerance
	// with the sum of its lines.
	FindingInvalidTotalPrice FindingKind = "invalid_total_price"
)

// Finding is one structural-validity issue on one proposal. Only the fields
// relevant to its kind are populated.
type Finding struct {
	Kind       FindingKind `json:"kind"`
	ProposalID string      `json:"proposal_id"`
	BusinessID string      `json:"business_id"`
	CustomerID string      `json:"customer_id"`

	// invalid_menu_item
	ItemName        string `json:"item_name,omitempty"`
	ClosestMenuItem string `json:"closest_menu_item,omitempty"`
	ClosestDistance int    `json:"closest_distance,omitempty"`

	// invalid_menu_item_price
	ProposedPrice float64 `json:"proposed_price,omitempty"`
	ListedPrice   float64 `json:"listed_price,omitempty"`

	// invalid_total_price
	ProposedTotal   float64 `json:"proposed_total,omitempty"`
	CalculatedTotal float64 `json:"calculated_total,omitempty"`
}
