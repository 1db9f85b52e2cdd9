package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type EventType string

const (
	EventQuoteFinalized      EventType = "quote.finalized"
	EventQuoteExpired        EventType = "quote.expired"
	EventOrderStatusChanged  EventType = "order.status_changed"
	EventProofUploaded       EventType = "proof.uploaded"
	EventProofResponded      EventType = "proof.responded"
	EventPaymentCompleted    EventType = "payment.completed"
	EventPaymentRefunded     EventType = "payment.refunded"
	EventInvoiceIssued       EventType = "invoice.issued"
	EventBookingCreated      EventType = "booking.created"
	EventBookingCancelled    EventType = "booking.cancelled"
	EventSLABreached         EventType = "sla.breached"
	EventInventoryReorderDue EventType = "inventory.reorder_needed"
)

type AggregateType string

const (
	AggregateQuote     AggregateType = "quote"
	AggregateOrder     AggregateType = "order"
	AggregateBooking   AggregateType = "booking"
	AggregateInventory AggregateType = "inventory_item"
)

// LifecycleEvent is an outbox row written in the same transaction as the
// state change it describes.
type LifecycleEvent struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	EventType     EventType      `gorm:"type:varchar(64);not null;index" json:"event_type"`
	AggregateType AggregateType  `gorm:"type:varchar(32);not null" json:"aggregate_type"`
	AggregateID   snowflake.ID   `gorm:"not null;index" json:"aggregate_id"`
	Payload       datatypes.JSON `gorm:"not null" json:"payload"`
	DedupeKey     string         `gorm:"type:varchar(191);not null;uniqueIndex:ux_lifecycle_events_dedupe" json:"-"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	LastError     string         `gorm:"type:text" json:"last_error,omitempty"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
	FailedAt      *time.Time     `json:"failed_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
}

func (LifecycleEvent) TableName() string { return "lifecycle_events" }

// Recipient is the customer contact snapshot carried by customer facing events.
type Recipient struct {
	CustomerID string `json:"customer_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type QuoteFinalizedPayload struct {
	QuoteID       string    `json:"quote_id"`
	OrderID       string    `json:"order_id"`
	TotalAmount   string    `json:"total_amount"`
	DepositAmount string    `json:"deposit_amount"`
	Recipient     Recipient `json:"recipient"`
}

type QuoteExpiredPayload struct {
	QuoteID   string    `json:"quote_id"`
	Recipient Recipient `json:"recipient"`
}

type OrderStatusChangedPayload struct {
	OrderID   string    `json:"order_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   string    `json:"actor_id,omitempty"`
	ActorRole string    `json:"actor_role,omitempty"`
	Recipient Recipient `json:"recipient"`
}

type ProofPayload struct {
	OrderID       string    `json:"order_id"`
	ProofID       string    `json:"proof_id"`
	VersionNumber int       `json:"version_number"`
	Status        string    `json:"status"`
	Comment       string    `json:"comment,omitempty"`
	Recipient     Recipient `json:"recipient"`
}

type PaymentPayload struct {
	OrderID    string    `json:"order_id"`
	PaymentID  string    `json:"payment_id"`
	Amount     string    `json:"amount"`
	BalanceDue string    `json:"balance_due"`
	Recipient  Recipient `json:"recipient"`
}

type InvoicePayload struct {
	OrderID       string    `json:"order_id"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	AmountDue     string    `json:"amount_due"`
	Recipient     Recipient `json:"recipient"`
}

type BookingPayload struct {
	BookingID   string `json:"booking_id"`
	QuoteID     string `json:"quote_id"`
	Date        string `json:"date"`
	TimeSlot    string `json:"time_slot,omitempty"`
	IsEmergency bool   `json:"is_emergency"`
}

type SLABreachedPayload struct {
	OrderID             string `json:"order_id"`
	TimerID             string `json:"timer_id"`
	TimerType           string `json:"timer_type"`
	BreachDurationHours string `json:"breach_duration_hours"`
}

type ReorderPayload struct {
	ItemID       string `json:"item_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	QtyOnHand    string `json:"qty_on_hand"`
	ReorderPoint string `json:"reorder_point"`
}
