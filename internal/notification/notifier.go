package notification

import (
	"context"
	"errors"

	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	"github.com/smallbiznis/printflow/internal/providers/email"
	"github.com/smallbiznis/printflow/internal/providers/sms"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	customerTemplate = "customer_update"
	staffTemplate    = "staff_alert"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Email     email.Provider
	SMS       sms.Provider
	Providers config.ProvidersConfig
}

// Notifier fans events out to customers and staff.
type Notifier struct {
	log   *zap.Logger
	email email.Provider
	sms   sms.Provider
	staff []string
}

func NewNotifier(p Params) *Notifier {
	return &Notifier{
		log:   p.Log.Named("notification"),
		email: p.Email,
		sms:   p.SMS,
		staff: p.Providers.StaffNotify.Emails,
	}
}

func (n *Notifier) Notify(ctx context.Context, event eventdomain.LifecycleEvent) error {
	msg, ok, err := Render(event)
	if err != nil {
		// A payload that cannot be decoded will never succeed.
		n.log.Error("dropping undecodable event", zap.String("event_id", event.ID.String()), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	data := map[string]any{
		"subject":  msg.Title,
		"title":    msg.Title,
		"lines":    msg.Lines,
		"order_id": msg.OrderID,
	}

	if msg.Audience == AudienceStaff {
		if len(n.staff) == 0 {
			return nil
		}
		return n.email.SendTemplate(ctx, n.staff, staffTemplate, data)
	}

	var errs []error
	if to := msg.Recipient.Email; to != "" {
		data["name"] = msg.Recipient.Name
		if err := n.email.SendTemplate(ctx, []string{to}, customerTemplate, data); err != nil {
			errs = append(errs, err)
		}
	}
	if to := msg.Recipient.Phone; to != "" {
		if err := n.sms.Send(ctx, to, msg.Text()); err != nil && !errors.Is(err, sms.ErrNoRecipient) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	n.log.Debug("event delivered",
		zap.String("event_id", event.ID.String()),
		zap.String("event_type", string(event.EventType)),
	)
	return nil
}
