package models

import (
	"time"

	"adoor/estate/internal/utils"
)

// PropertyStatus is the catalog state of a property.
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "Available"
	PropertyStatusPending   PropertyStatus = "Pending"
	PropertyStatusSold      PropertyStatus = "Sold"
	PropertyStatusRented    PropertyStatus = "Rented"
	PropertyStatusWithdrawn PropertyStatus = "Withdrawn"
)

// Pricing defines the monetary terms of a property listing.
type Pricing struct {
	Amount       float64 `bson:"amount" json:"amount"`
	CurrencyCode string  `bson:"currency_code" json:"currency_code"`
	RentPeriod   string  `bson:"rent_period,omitempty" json:"rent_period,omitempty"` // e.g. "monthly", "weekly"; empty for sales
}

// PropertyLocation is the address block of a property.
type PropertyLocation struct {
	Address string `bson:"address" json:"address"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	Country string `bson:"country" json:"country"`
}

// PropertySpecs holds the physical characteristics of a property.
type PropertySpecs struct {
	Bedrooms  int     `bson:"bedrooms,omitempty" json:"bedrooms,omitempty"`
	Bathrooms int     `bson:"bathrooms,omitempty" json:"bathrooms,omitempty"`
	AreaSqm   float64 `bson:"area_sqm,omitempty" json:"area_sqm,omitempty"`
	Furnished bool    `bson:"furnished,omitempty" json:"furnished,omitempty"`
}

// Property represents a property listed on the marketplace.
type Property struct {
	ID           utils.SixID      `bson:"_id,omitempty" json:"id,omitempty"`
	AgentID      utils.SixID      `bson:"agent_id" json:"agent_id"` // Listing agent, defaulted onto appointments
	Title        string           `bson:"title" json:"title"`
	Description  string           `bson:"description" json:"description"`
	PropertyType string           `bson:"property_type" json:"property_type"` // e.g. "Apartment", "House", "Land", "Commercial"
	ListingType  string           `bson:"listing_type" json:"listing_type"`   // "sale" or "rent"
	Pricing      Pricing          `bson:"pricing" json:"pricing"`
	Location     PropertyLocation `bson:"location" json:"location"`
	Specs        *PropertySpecs   `bson:"specs,omitempty" json:"specs,omitempty"`
	Status       PropertyStatus   `bson:"status" json:"status"`
	Views        int64            `bson:"views" json:"views"`
	Inquiries    int64            `bson:"inquiries" json:"inquiries"` // Incremented atomically on inquiry submission
	CreatedAt    time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at" json:"updated_at"`
	Deleted      bool             `bson:"deleted" json:"-"` // Soft delete flag
}

// PropertySummary is the subset of property fields expanded into
// appointment and inquiry responses for display.
type PropertySummary struct {
	ID       utils.SixID      `bson:"_id" json:"id"`
	Title    string           `bson:"title" json:"title"`
	Pricing  Pricing          `bson:"pricing" json:"pricing"`
	Location PropertyLocation `bson:"location" json:"location"`
	Status   PropertyStatus   `bson:"status" json:"status"`
}
