// Package domain defines the persistence models for the freight marketplace:
// users, cargo postings, quotes, deals, and chat threads/messages. These types
// are mapped with GORM and form the core data layer of the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account identity. Rows are created lazily on the first
// authenticated request and never hard-deleted.
//
// Fields:
//   - ID: external auth subject (opaque string, primary key).
//   - Role: account tier ("trial" or "pro"); trial accounts are subject to
//     an active-posting quota.
//   - FirstLogin: true until the user performs their first meaningful action.
//   - BillingCustomerID: optional reference into the billing provider.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID                string    `json:"id"                  gorm:"type:varchar(64);primaryKey"`
	Role              UserRole  `json:"role"                gorm:"type:varchar(16);not null;default:'trial';check:role IN ('trial','pro')"`
	FirstLogin        bool      `json:"first_login"         gorm:"not null;default:true"`
	BillingCustomerID *string   `json:"billing_customer_id,omitempty" gorm:"type:varchar(64)"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Cargo represents a shipment posting owned by exactly one shipper.
//
// Status is mutated only by the deal lifecycle (Active → Assigned →
// Completed/Cancelled); every other field is fixed at creation. Non-public
// postings never appear in the marketplace view.
type Cargo struct {
	ID          string `json:"id"          gorm:"type:char(36);primaryKey"`
	OwnerID     string `json:"owner_id"    gorm:"type:varchar(64);not null;index:idx_owner_cargo"`
	Title       string `json:"title"       gorm:"type:varchar(200);not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`

	PickupAddress   string    `json:"pickup_address"    gorm:"type:varchar(255);not null"`
	PickupCity      string    `json:"pickup_city"       gorm:"type:varchar(100);not null"`
	PickupCountry   string    `json:"pickup_country"    gorm:"type:varchar(100);not null"`
	PickupDate      time.Time `json:"pickup_date"       gorm:"not null"`
	PickupTimeStart *string   `json:"pickup_time_start,omitempty" gorm:"type:varchar(8)"`
	PickupTimeEnd   *string   `json:"pickup_time_end,omitempty"   gorm:"type:varchar(8)"`

	DeliveryAddress   string    `json:"delivery_address"  gorm:"type:varchar(255);not null"`
	DeliveryCity      string    `json:"delivery_city"     gorm:"type:varchar(100);not null"`
	DeliveryCountry   string    `json:"delivery_country"  gorm:"type:varchar(100);not null"`
	DeliveryDate      time.Time `json:"delivery_date"     gorm:"not null"`
	DeliveryTimeStart *string   `json:"delivery_time_start,omitempty" gorm:"type:varchar(8)"`
	DeliveryTimeEnd   *string   `json:"delivery_time_end,omitempty"   gorm:"type:varchar(8)"`

	Weight              *float64  `json:"weight,omitempty"`
	Volume              *float64  `json:"volume,omitempty"`
	CargoType           CargoType `json:"cargo_type"  gorm:"type:varchar(16);not null;check:cargo_type IN ('General','Fragile','Hazardous','Refrigerated')"`
	Packaging           *string   `json:"packaging,omitempty" gorm:"type:varchar(100)"`
	SpecialRequirements *string   `json:"special_requirements,omitempty" gorm:"type:text"`

	EstimatedValue *float64 `json:"estimated_value,omitempty"`
	BudgetMin      *float64 `json:"budget_min,omitempty"`
	BudgetMax      *float64 `json:"budget_max,omitempty"`

	Status   CargoStatus `json:"status"    gorm:"type:varchar(16);not null;default:'Active';index:idx_owner_cargo,priority:2;index"`
	IsUrgent bool        `json:"is_urgent" gorm:"not null;default:false"`
	IsPublic bool        `json:"is_public" gorm:"not null;default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Owner User `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
}

// TableName returns the database table name for Cargo.
func (Cargo) TableName() string { return "cargos" }

// Quote is a carrier's priced bid against a Cargo.
//
// At most one quote may exist per (cargo, carrier) pair, enforced by a unique
// index. Quotes start Pending and are resolved to Accepted, Rejected, or
// Expired by the deal lifecycle (or the lazy expiry pass for stale bids).
type Quote struct {
	ID        string `json:"id"         gorm:"type:char(36);primaryKey"`
	CargoID   string `json:"cargo_id"   gorm:"type:char(36);not null;index;uniqueIndex:ux_quote_cargo_carrier"`
	CarrierID string `json:"carrier_id" gorm:"type:varchar(64);not null;index;uniqueIndex:ux_quote_cargo_carrier"`

	TotalPrice        float64  `json:"total_price" gorm:"not null"`
	PricePerKm        *float64 `json:"price_per_km,omitempty"`
	EstimatedDistance *float64 `json:"estimated_distance,omitempty"`
	VehicleType       string   `json:"vehicle_type" gorm:"type:varchar(100);not null"`

	EstimatedPickupTime   *time.Time `json:"estimated_pickup_time,omitempty"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time,omitempty"`
	Notes                 *string    `json:"notes,omitempty" gorm:"type:text"`

	Status     QuoteStatus `json:"status" gorm:"type:varchar(16);not null;default:'Pending';check:status IN ('Pending','Accepted','Rejected','Expired')"`
	ValidUntil *time.Time  `json:"valid_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Cargo   Cargo `json:"-" gorm:"foreignKey:CargoID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Carrier User  `json:"-" gorm:"foreignKey:CarrierID;references:ID"`
}

// TableName returns the database table name for Quote.
func (Quote) TableName() string { return "quotes" }

// TimelineEntry is one step in a deal's append-only history.
type TimelineEntry struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description,omitempty"`
}

// Deal is the engagement formed from exactly one accepted quote. ShipperID and
// TransporterID are denormalized from Cargo/Quote for query convenience; the
// business rule allows at most one non-cancelled deal per cargo at a time.
type Deal struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	CargoID       string `json:"cargo_id"       gorm:"type:char(36);not null;index"`
	QuoteID       string `json:"quote_id"       gorm:"type:char(36);not null;uniqueIndex"`
	ShipperID     string `json:"shipper_id"     gorm:"type:varchar(64);not null;index"`
	TransporterID string `json:"transporter_id" gorm:"type:varchar(64);not null;index"`

	TotalAmount float64    `json:"total_amount" gorm:"not null"`
	Status      DealStatus `json:"status"       gorm:"type:varchar(16);not null;default:'Active';check:status IN ('Active','InTransit','Delivered','Completed','Cancelled')"`
	// Progress runs from 0.0 (just created) to 1.0 (completed).
	Progress float64         `json:"progress" gorm:"not null;default:0"`
	Timeline []TimelineEntry `json:"timeline" gorm:"serializer:json"`

	AgreedPickupDate   *time.Time `json:"agreed_pickup_date,omitempty"`
	AgreedDeliveryDate *time.Time `json:"agreed_delivery_date,omitempty"`
	ActualPickupDate   *time.Time `json:"actual_pickup_date,omitempty"`
	ActualDeliveryDate *time.Time `json:"actual_delivery_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Cargo Cargo `json:"-" gorm:"foreignKey:CargoID;references:ID"`
	Quote Quote `json:"-" gorm:"foreignKey:QuoteID;references:ID"`
}

// TableName returns the database table name for Deal.
func (Deal) TableName() string { return "deals" }

// ChatThread is a conversation scoped to one cargo. The unique index on
// CargoID is what makes concurrent get-or-create safe: the losing insert
// surfaces a duplicate-key error and the caller fetches the winner instead.
//
// Participants are the fixed pair (cargo owner, counterparty). LastMessageAt
// is a denormalized sort key bumped on every message.
type ChatThread struct {
	ID      string  `json:"id"       gorm:"type:char(36);primaryKey"`
	CargoID string  `json:"cargo_id" gorm:"type:char(36);not null;uniqueIndex:ux_thread_cargo"`
	DealID  *string `json:"deal_id,omitempty"  gorm:"type:char(36)"`
	QuoteID *string `json:"quote_id,omitempty" gorm:"type:char(36)"`

	Title         string     `json:"title"          gorm:"type:varchar(255);not null"`
	ShipperID     string     `json:"shipper_id"     gorm:"type:varchar(64);not null;index"`
	CounterpartID string     `json:"counterpart_id" gorm:"type:varchar(64);not null;index"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Cargo Cargo `json:"-" gorm:"foreignKey:CargoID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatThread.
func (ChatThread) TableName() string { return "chat_threads" }

// HasParticipant reports whether userID is one of the thread's two parties.
func (t *ChatThread) HasParticipant(userID string) bool {
	return userID != "" && (userID == t.ShipperID || userID == t.CounterpartID)
}

// ChatMessage belongs to one thread and is immutable once created, except for
// the IsRead flag which flips to true when the counterparty lists messages.
type ChatMessage struct {
	ID          string      `json:"id"           gorm:"type:char(36);primaryKey"`
	ThreadID    string      `json:"thread_id"    gorm:"type:char(36);not null;index:idx_thread_msgs,priority:1"`
	SenderID    string      `json:"sender_id"    gorm:"type:varchar(64);not null;index"`
	Content     string      `json:"content"      gorm:"type:text;not null"`
	MessageType MessageType `json:"message_type" gorm:"type:varchar(16);not null;default:'text';check:message_type IN ('text','system')"`
	IsRead      bool        `json:"is_read"      gorm:"not null;default:false"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_thread_msgs,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`

	// Thread is the parent conversation. Messages are cascade-deleted if
	// their thread is removed.
	Thread ChatThread `json:"-" gorm:"foreignKey:ThreadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }
