package types

// Product is a catalog entry the storefront can deliver on a recurring basis.
// The engine consumes the catalog read-only; pricing and availability are
// owned elsewhere and loaded from configuration.
type Product struct {
	ID       string `json:"id" mapstructure:"id"`
	Name     string `json:"name" mapstructure:"name"`
	ImageURL string `json:"image_url" mapstructure:"image_url"`
	// UnitPrice is the current catalog price in minor currency units.
	UnitPrice int64  `json:"unit_price" mapstructure:"unit_price"`
	Currency  string `json:"currency" mapstructure:"currency"`
	Available bool   `json:"available" mapstructure:"available"`
}

func (p *Product) Orderable() bool {
	return p != nil && p.Available
}
