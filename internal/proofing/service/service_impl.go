package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	eventdomain "github.com/smallbiznis/printflow/internal/events/domain"
	obscontext "github.com/smallbiznis/printflow/internal/observability/context"
	"github.com/smallbiznis/printflow/internal/observability/logger"
	orderdomain "github.com/smallbiznis/printflow/internal/order/domain"
	"github.com/smallbiznis/printflow/internal/proofing/domain"
	sladomain "github.com/smallbiznis/printflow/internal/sla/domain"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"github.com/smallbiznis/printflow/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Orders    orderdomain.Service
	SLA       sladomain.Service
	Events    eventdomain.Publisher
	Lifecycle *config.LifecycleConfigHolder
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	orders    orderdomain.Service
	sla       sladomain.Service
	events    eventdomain.Publisher
	lifecycle *config.LifecycleConfigHolder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("proofing.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		orders:    p.Orders,
		sla:       p.SLA,
		events:    p.Events,
		lifecycle: p.Lifecycle,
	}
}

func (s *Service) Upload(ctx context.Context, orderID string, req domain.UploadProofRequest) (domain.ProofVersion, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(orderID))
	if err != nil || id == 0 {
		return domain.ProofVersion{}, orderdomain.ErrInvalidID
	}
	fileRef := strings.TrimSpace(req.FileRef)
	if fileRef == "" {
		return domain.ProofVersion{}, domain.ErrInvalidFileRef
	}
	if req.FileSize < 0 {
		return domain.ProofVersion{}, domain.ErrInvalidFileSize
	}
	staffID := strings.TrimSpace(req.StaffID)
	if staffID == "" {
		_, staffID = obscontext.ActorFromContext(ctx)
	}

	var proof domain.ProofVersion
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		order, err := s.orders.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return domain.ErrOrderClosed
		}
		if order.Status.ReachedProduction() {
			return domain.ErrOrderInProduction
		}
		awaiting, err := s.repo.FindAwaiting(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if awaiting != nil {
			return domain.ErrProofPending.Withf("proof version %d is still waiting on the customer", awaiting.VersionNumber)
		}
		latest, err := s.repo.MaxVersion(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		proof = domain.ProofVersion{
			ID:            s.genID.Generate(),
			OrderID:       order.ID,
			VersionNumber: latest + 1,
			FileRef:       fileRef,
			FileName:      strings.TrimSpace(req.FileName),
			ContentType:   strings.TrimSpace(req.ContentType),
			FileSize:      req.FileSize,
			StaffID:       staffID,
			Note:          strings.TrimSpace(req.Note),
			Status:        domain.StatusSent,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Insert(ctx, tx, &proof); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return errs.ErrConcurrencyConflict.Wrap(err)
			}
			return err
		}

		switch order.Status {
		case orderdomain.StatusDepositPaid:
			if _, err := s.orders.AdvanceStatusTx(ctx, tx, order.ID, orderdomain.StatusDesignInProgress, "proof uploaded"); err != nil {
				return err
			}
			fallthrough
		case orderdomain.StatusDesignInProgress:
			if _, err := s.orders.AdvanceStatusTx(ctx, tx, order.ID, orderdomain.StatusWaitingApproval, "proof uploaded"); err != nil {
				return err
			}
		}

		if proof.VersionNumber == 1 {
			if err := s.sla.CompleteByTypeTx(ctx, tx, order.ID, sladomain.TimerFirstProof); err != nil {
				return err
			}
		}
		// The customer holds the ball until they answer.
		if err := s.sla.PauseByTypeTx(ctx, tx, order.ID, sladomain.TimerRevisionTurnaround); err != nil {
			return err
		}
		return s.publish(ctx, tx, eventdomain.EventProofUploaded, proof, *order)
	})
	if err != nil {
		return domain.ProofVersion{}, err
	}

	logger.WithOrder(s.log, proof.OrderID.String()).Info("proof uploaded",
		zap.String("proof_id", proof.ID.String()),
		zap.Int("version", proof.VersionNumber),
	)
	return proof, nil
}

func (s *Service) MarkViewed(ctx context.Context, id string) (domain.ProofVersion, error) {
	proofID, err := parseID(id)
	if err != nil {
		return domain.ProofVersion{}, err
	}

	proof, err := s.visible(ctx, proofID)
	if err != nil {
		return domain.ProofVersion{}, err
	}
	switch proof.Status {
	case domain.StatusViewed:
		return proof, nil
	case domain.StatusSent:
	default:
		return domain.ProofVersion{}, domain.ErrProofClosed
	}

	now := s.clock.Now()
	proof.Status = domain.StatusViewed
	proof.ViewedAt = &now
	proof.UpdatedAt = now
	ok, err := s.repo.UpdateFrom(ctx, s.db, &proof, domain.StatusSent)
	if err != nil {
		return domain.ProofVersion{}, err
	}
	if !ok {
		// Answered or viewed in the meantime.
		return s.Get(ctx, id)
	}
	return proof, nil
}

func (s *Service) Respond(ctx context.Context, id string, req domain.RespondProofRequest) (domain.ProofVersion, error) {
	proofID, err := parseID(id)
	if err != nil {
		return domain.ProofVersion{}, err
	}
	decision := domain.Decision(strings.ToUpper(strings.TrimSpace(string(req.Decision))))
	if !decision.Valid() {
		return domain.ProofVersion{}, domain.ErrInvalidDecision
	}
	if _, err := s.visible(ctx, proofID); err != nil {
		return domain.ProofVersion{}, err
	}

	var proof *domain.ProofVersion
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		proof, err = s.repo.FindByID(ctx, pkgdb.ForUpdate(tx), proofID)
		if err != nil {
			return err
		}
		if proof == nil {
			return domain.ErrProofNotFound
		}
		if !proof.Status.Awaiting() {
			return domain.ErrProofClosed
		}
		order, err := s.orders.GetForUpdateTx(ctx, tx, proof.OrderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return domain.ErrOrderClosed
		}

		now := s.clock.Now()
		from := proof.Status
		proof.CustomerComment = strings.TrimSpace(req.Comment)
		proof.RespondedAt = &now
		proof.UpdatedAt = now

		switch decision {
		case domain.DecisionApprove:
			proof.Status = domain.StatusApproved
			if err := s.sla.CompleteByTypeTx(ctx, tx, order.ID, sladomain.TimerRevisionTurnaround); err != nil {
				return err
			}
			if order.Status == orderdomain.StatusWaitingApproval {
				if _, err := s.orders.AdvanceStatusTx(ctx, tx, order.ID, orderdomain.StatusInProduction, "proof approved"); err != nil {
					return err
				}
			}
		case domain.DecisionRequestRevision:
			proof.Status = domain.StatusRevisionRequested
			if _, err := s.orders.RecordRevisionTx(ctx, tx, order.ID, false); err != nil {
				return err
			}
			if order.Status == orderdomain.StatusWaitingApproval {
				if _, err := s.orders.AdvanceStatusTx(ctx, tx, order.ID, orderdomain.StatusDesignInProgress, "revision requested"); err != nil {
					return err
				}
			}
			resumed, err := s.sla.ResumeByTypeTx(ctx, tx, order.ID, sladomain.TimerRevisionTurnaround)
			if err != nil {
				return err
			}
			if !resumed {
				dueAt := now.Add(s.lifecycle.Get().SLA.RevisionTurnaround)
				if _, err := s.sla.StartTimerTx(ctx, tx, order.ID, sladomain.TimerRevisionTurnaround, dueAt); err != nil {
					return err
				}
			}
		}

		ok, err := s.repo.UpdateFrom(ctx, tx, proof, from)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrConcurrencyConflict.Withf("proof %s changed concurrently", proof.ID)
		}
		return s.publish(ctx, tx, eventdomain.EventProofResponded, *proof, *order)
	})
	if err != nil {
		return domain.ProofVersion{}, err
	}

	logger.WithOrder(logger.WithContext(ctx, s.log), proof.OrderID.String()).Info("proof answered",
		zap.String("proof_id", proof.ID.String()),
		zap.String("status", string(proof.Status)),
	)
	return *proof, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.ProofVersion, error) {
	proofID, err := parseID(id)
	if err != nil {
		return domain.ProofVersion{}, err
	}
	return s.visible(ctx, proofID)
}

func (s *Service) List(ctx context.Context, orderID string) ([]domain.ProofVersion, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(ctx, order) {
		return nil, orderdomain.ErrOrderNotFound
	}
	return s.repo.ListByOrder(ctx, s.db, order.ID)
}

// visible loads a proof the current actor may see. Customers only see
// proofs of their own orders.
func (s *Service) visible(ctx context.Context, id snowflake.ID) (domain.ProofVersion, error) {
	proof, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ProofVersion{}, err
	}
	if proof == nil {
		return domain.ProofVersion{}, domain.ErrProofNotFound
	}
	if role, _ := obscontext.ActorFromContext(ctx); role == obscontext.RoleCustomer {
		order, err := s.orders.Get(ctx, proof.OrderID.String())
		if err != nil {
			return domain.ProofVersion{}, err
		}
		if !ownedBy(ctx, order) {
			return domain.ProofVersion{}, domain.ErrProofNotFound
		}
	}
	return *proof, nil
}

func (s *Service) publish(ctx context.Context, tx *gorm.DB, eventType eventdomain.EventType, proof domain.ProofVersion, order orderdomain.Order) error {
	return s.events.PublishTx(ctx, tx, eventdomain.Event{
		Type:          eventType,
		AggregateType: eventdomain.AggregateOrder,
		AggregateID:   order.ID,
		DedupeKey:     fmt.Sprintf("%s:%s", eventType, proof.ID),
		Payload: eventdomain.ProofPayload{
			OrderID:       order.ID.String(),
			ProofID:       proof.ID.String(),
			VersionNumber: proof.VersionNumber,
			Status:        string(proof.Status),
			Comment:       proof.CustomerComment,
			Recipient: eventdomain.Recipient{
				CustomerID: order.CustomerID,
				Name:       order.CustomerName,
				Email:      order.CustomerEmail,
				Phone:      order.CustomerPhone,
			},
		},
	})
}

func ownedBy(ctx context.Context, order orderdomain.Order) bool {
	role, actorID := obscontext.ActorFromContext(ctx)
	return role != obscontext.RoleCustomer || order.CustomerID == actorID
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

