package notification

import (
	"encoding/json"
	"fmt"
	"strings"

	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
)

type Audience string

const (
	AudienceCustomer Audience = "customer"
	AudienceStaff    Audience = "staff"
)

// Message is an event rendered for people. Lines become paragraphs in email
// and are joined into one text for SMS.
type Message struct {
	Audience  Audience
	Recipient eventdomain.Recipient
	Title     string
	Lines     []string
	OrderID   string
}

func (m Message) Text() string {
	return m.Title + ". " + strings.Join(m.Lines, " ")
}

var statusLabels = map[string]string{
	"DEPOSIT_PAID":       "deposit received",
	"DESIGN_IN_PROGRESS": "design in progress",
	"WAITING_APPROVAL":   "waiting for your approval",
	"IN_PRODUCTION":      "in production",
	"QUALITY_CHECK":      "in quality check",
	"READY_FOR_PICKUP":   "ready for pickup",
	"SHIPPED":            "shipped",
	"COMPLETED":          "completed",
	"CANCELLED":          "cancelled",
}

// Render turns an outbox event into a message. It reports false for event
// types nobody is told about.
func Render(event eventdomain.LifecycleEvent) (Message, bool, error) {
	switch event.EventType {
	case eventdomain.EventQuoteFinalized:
		var p eventdomain.QuoteFinalizedPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		return Message{
			Audience:  AudienceCustomer,
			Recipient: p.Recipient,
			Title:     "Your quote is confirmed",
			Lines: []string{
				fmt.Sprintf("Order total: %s.", p.TotalAmount),
				fmt.Sprintf("Deposit: %s.", p.DepositAmount),
			},
			OrderID: p.OrderID,
		}, true, nil

	case eventdomain.EventQuoteExpired:
		var p eventdomain.QuoteExpiredPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		return Message{
			Audience:  AudienceCustomer,
			Recipient: p.Recipient,
			Title:     "Your quote has expired",
			Lines:     []string{"Reply to this message if you would like a new quote."},
		}, true, nil

	case eventdomain.EventOrderStatusChanged:
		var p eventdomain.OrderStatusChangedPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		label, ok := statusLabels[p.To]
		if !ok {
			label = strings.ToLower(p.To)
		}
		return Message{
			Audience:  AudienceCustomer,
			Recipient: p.Recipient,
			Title:     "Your order is " + label,
			OrderID:   p.OrderID,
		}, true, nil

	case eventdomain.EventProofUploaded:
		var p eventdomain.ProofPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		return Message{
			Audience:  AudienceCustomer,
			Recipient: p.Recipient,
			Title:     fmt.Sprintf("Proof version %d is ready", p.VersionNumber),
			Lines:     []string{"Please approve it or ask for changes."},
			OrderID:   p.OrderID,
		}, true, nil

	case eventdomain.EventProofResponded:
		var p eventdomain.ProofPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		lines := []string{fmt.Sprintf("Proof version %d was answered: %s.", p.VersionNumber, strings.ToLower(p.Status))}
		if p.Comment != "" {
			lines = append(lines, "Customer comment: "+p.Comment)
		}
		return Message{
			Audience: AudienceStaff,
			Title:    "Proof answered",
			Lines:    lines,
			OrderID:  p.OrderID,
		}, true, nil

	case eventdomain.EventPaymentCompleted, eventdomain.EventPaymentRefunded:
		var p eventdomain.PaymentPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		title := "Payment received"
		if event.EventType == eventdomain.EventPaymentRefunded {
			title = "Refund issued"
		}
		return Message{
			Audience:  AudienceCustomer,
			Recipient: p.Recipient,
			Title:     title,
			Lines: []string{
				fmt.Sprintf("Amount: %s.", p.Amount),
				fmt.Sprintf("Balance due: %s.", p.BalanceDue),
			},
			OrderID: p.OrderID,
		}, true, nil

	case eventdomain.EventInvoiceIssued:
		var p eventdomain.InvoicePayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		return Message{
			Audience:  AudienceCustomer,
			Recipient: p.Recipient,
			Title:     "Invoice " + p.InvoiceNumber,
			Lines:     []string{fmt.Sprintf("Amount due: %s.", p.AmountDue)},
			OrderID:   p.OrderID,
		}, true, nil

	case eventdomain.EventBookingCreated, eventdomain.EventBookingCancelled:
		var p eventdomain.BookingPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		title := "New booking"
		if event.EventType == eventdomain.EventBookingCancelled {
			title = "Booking cancelled"
		}
		when := p.Date
		if p.TimeSlot != "" {
			when += " " + p.TimeSlot
		}
		lines := []string{"Date: " + when + "."}
		if p.IsEmergency {
			lines = append(lines, "Emergency slot.")
		}
		return Message{Audience: AudienceStaff, Title: title, Lines: lines}, true, nil

	case eventdomain.EventSLABreached:
		var p eventdomain.SLABreachedPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		return Message{
			Audience: AudienceStaff,
			Title:    "SLA breached",
			Lines: []string{
				fmt.Sprintf("Timer %s is %s hours late.", strings.ToLower(p.TimerType), p.BreachDurationHours),
			},
			OrderID: p.OrderID,
		}, true, nil

	case eventdomain.EventInventoryReorderDue:
		var p eventdomain.ReorderPayload
		if err := decode(event, &p); err != nil {
			return Message{}, false, err
		}
		return Message{
			Audience: AudienceStaff,
			Title:    "Reorder " + p.Name,
			Lines: []string{
				fmt.Sprintf("%s has %s on hand, reorder point %s.", p.SKU, p.QtyOnHand, p.ReorderPoint),
			},
		}, true, nil
	}
	return Message{}, false, nil
}

func decode(event eventdomain.LifecycleEvent, out any) error {
	if err := json.Unmarshal([]byte(event.Payload), out); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	return nil
}
