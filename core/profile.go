package core

// Role categorizes the two sides of the marketplace.
type Role string

const (
	// RoleBusiness identifies agents that offer a menu and receive payments.
	RoleBusiness Role = "business"
	// RoleCustomer identifies agents that search, negotiate and pay.
	RoleCustomer Role = "customer"
)

// BusinessProfile is the immutable configuration of a business agent, loaded
// once per run. Menu maps item name to listed price; Amenities maps amenity
// name to availability.
type BusinessProfile struct {
	ID             string             `json:"id" yaml:"id"`
	Name           string             `json:"name" yaml:"name"`
	Menu           map[string]float64 `json:"menu" yaml:"menu"`
	Amenities      map[string]bool    `json:"amenities" yaml:"amenities"`
	Rating         float64            `json:"rating" yaml:"rating"`
	MinPriceFactor float64            `json:"min_price_factor" yaml:"min_price_factor"`
}

// CustomerProfile is the immutable configuration of a customer agent. WTP maps
// requested item name to the customer's private willingness-to-pay; it is used
// only for utility scoring and never revealed to businesses.
type CustomerProfile struct {
	ID                string             `json:"id" yaml:"id"`
	Name              string             `json:"name" yaml:"name"`
	WTP               map[string]float64 `json:"wtp" yaml:"wtp"`
	RequiredAmenities []string           `json:"required_amenities" yaml:"required_amenities"`
}

// AgentInfo carries the identity every action record is attributed to.
type AgentInfo struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
