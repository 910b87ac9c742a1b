package legacyimport

import "time"

// Collection names in the legacy document store.
const (
	CollectionCustomers    = "customers"
	CollectionProducts     = "products"
	CollectionPricingRules = "pricingRules"
	CollectionInvoices     = "invoices"
)

type CustomerDoc struct {
	Name              string    `firestore:"name"`
	ContactPerson     string    `firestore:"contactPerson"`
	Phone             string    `firestore:"phone"`
	Email             string    `firestore:"email"`
	Address           string    `firestore:"address"`
	TaxID             string    `firestore:"taxId"`
	CustomerTier      *string   `firestore:"customerTier"`
	PriceCategory     *string   `firestore:"priceCategory"`
	StartSerialNumber *string   `firestore:"startSerialNumber"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

type ProductDoc struct {
	Name           string    `firestore:"name"`
	Unit           string    `firestore:"unit"`
	Description    string    `firestore:"description"`
	Price          float64   `firestore:"price"`
	Specifications []string  `firestore:"specifications"`
	Active         *bool     `firestore:"active"`
	CreatedAt      time.Time `firestore:"createdAt"`
	UpdatedAt      time.Time `firestore:"updatedAt"`
}

type TierDoc struct {
	MinQuantity float64  `firestore:"minQuantity"`
	MaxQuantity *float64 `firestore:"maxQuantity"`
	Price       float64  `firestore:"price"`
}

type PricingRuleDoc struct {
	Name          string    `firestore:"name"`
	ProductID     string    `firestore:"productId"`
	CustomerID    *string   `firestore:"customerId"`
	PriceCategory *string   `firestore:"priceCategory"`
	Specification *string   `firestore:"specification"`
	BasePrice     float64   `firestore:"basePrice"`
	Tiers         []TierDoc `firestore:"tiers"`
	IsActive      *bool     `firestore:"isActive"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

type InvoiceItemDoc struct {
	ProductID     string  `firestore:"productId"`
	Description   string  `firestore:"description"`
	Specification string  `firestore:"specification"`
	Quantity      float64 `firestore:"quantity"`
	UnitPrice     float64 `firestore:"unitPrice"`
	Amount        float64 `firestore:"amount"`
}

type InvoiceDoc struct {
	SerialNumber    string           `firestore:"serialNumber"`
	CustomerID      string           `firestore:"customerId"`
	CustomerName    string           `firestore:"customerName"`
	Date            any              `firestore:"date"`
	Items           []InvoiceItemDoc `firestore:"items"`
	TotalAmount     float64          `firestore:"totalAmount"`
	Status          string           `firestore:"status"`
	SignatureBase64 *string          `firestore:"signatureBase64"`
	SignedAt        *time.Time       `firestore:"signedAt"`
	Note            string           `firestore:"note"`
	CreatedAt       time.Time        `firestore:"createdAt"`
	UpdatedAt       time.Time        `firestore:"updatedAt"`
}
