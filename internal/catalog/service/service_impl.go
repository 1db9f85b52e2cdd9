package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/printflow/internal/catalog/domain"
	"github.com/smallbiznis/printflow/internal/clock"
	pkgdb "github.com/smallbiznis/printflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("catalog.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateService(ctx context.Context, req domain.CreateServiceRequest) (domain.PrintService, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.PrintService{}, domain.ErrInvalidName
	}
	if req.BasePrice.IsNegative() {
		return domain.PrintService{}, domain.ErrInvalidPrice
	}
	if !validPercentage(req.DepositPercentage) {
		return domain.PrintService{}, domain.ErrInvalidPercentage
	}

	serviceSlug := slug.Make(strings.TrimSpace(req.Slug))
	if serviceSlug == "" {
		serviceSlug = slug.Make(name)
	}

	now := s.clock.Now()
	svc := domain.PrintService{
		ID:                s.genID.Generate(),
		Name:              name,
		Slug:              serviceSlug,
		Description:       strings.TrimSpace(req.Description),
		BasePrice:         req.BasePrice,
		DepositPercentage: req.DepositPercentage,
		IsActive:          req.IsActive == nil || *req.IsActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertService(ctx, s.db, &svc); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.PrintService{}, domain.ErrDuplicateSlug.Withf("slug %q already in use", serviceSlug)
		}
		return domain.PrintService{}, err
	}

	s.log.Info("service created", zap.String("service_id", svc.ID.String()), zap.String("slug", svc.Slug))
	return svc, nil
}

func (s *Service) UpdateService(ctx context.Context, id string, req domain.UpdateServiceRequest) (domain.PrintService, error) {
	serviceID, err := parseID(id)
	if err != nil {
		return domain.PrintService{}, err
	}

	var updated domain.PrintService
	err = pkgdb.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		svc, err := s.repo.FindServiceByID(ctx, pkgdb.ForUpdate(tx), serviceID)
		if err != nil {
			return err
		}
		if svc == nil {
			return domain.ErrServiceNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			svc.Name = name
		}
		if req.Description != nil {
			svc.Description = strings.TrimSpace(*req.Description)
		}
		if req.BasePrice != nil {
			if req.BasePrice.IsNegative() {
				return domain.ErrInvalidPrice
			}
			svc.BasePrice = *req.BasePrice
		}
		if req.DepositPercentage != nil {
			if !validPercentage(*req.DepositPercentage) {
				return domain.ErrInvalidPercentage
			}
			svc.DepositPercentage = *req.DepositPercentage
		}
		if req.IsActive != nil {
			svc.IsActive = *req.IsActive
		}
		svc.UpdatedAt = s.clock.Now()

		if err := s.repo.UpdateService(ctx, tx, svc); err != nil {
			return err
		}
		updated = *svc
		return nil
	})
	if err != nil {
		return domain.PrintService{}, err
	}
	return updated, nil
}

func (s *Service) GetService(ctx context.Context, id string) (domain.PrintService, error) {
	serviceID, err := parseID(id)
	if err != nil {
		return domain.PrintService{}, err
	}
	svc, err := s.repo.FindServiceByID(ctx, s.db, serviceID)
	if err != nil {
		return domain.PrintService{}, err
	}
	if svc == nil {
		return domain.PrintService{}, domain.ErrServiceNotFound
	}
	return *svc, nil
}

func (s *Service) ListServices(ctx context.Context, req domain.ListServicesRequest) (domain.ListServicesResponse, error) {
	page, err := req.Params.Normalize(domain.ServiceSortable, "created_at")
	if err != nil {
		return domain.ListServicesResponse{}, domain.ErrInvalidSort.Withf("%v", err)
	}
	items, total, err := s.repo.ListServices(ctx, s.db, req.Active, page)
	if err != nil {
		return domain.ListServicesResponse{}, err
	}
	return domain.ListServicesResponse{PageInfo: page.PageInfo(total), Services: items}, nil
}

func (s *Service) AddOption(ctx context.Context, serviceID string, req domain.AddOptionRequest) (domain.ServiceOption, error) {
	svc, err := s.GetService(ctx, serviceID)
	if err != nil {
		return domain.ServiceOption{}, err
	}

	key := strings.ToLower(strings.TrimSpace(req.Key))
	if key == "" {
		return domain.ServiceOption{}, domain.ErrInvalidOptionKey
	}
	if err := validateChoices(req.Kind, req.Choices); err != nil {
		return domain.ServiceOption{}, err
	}

	option := domain.ServiceOption{
		ID:        s.genID.Generate(),
		ServiceID: svc.ID,
		Key:       key,
		Label:     strings.TrimSpace(req.Label),
		Kind:      req.Kind,
		Choices:   req.Choices,
		Rules:     datatypes.NewJSONType(req.Rules),
		Position:  req.Position,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertOption(ctx, s.db, &option); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ServiceOption{}, domain.ErrDuplicateOptionKey.Withf("option %q already defined", key)
		}
		return domain.ServiceOption{}, err
	}
	return option, nil
}

func (s *Service) ListOptions(ctx context.Context, serviceID string) ([]domain.ServiceOption, error) {
	svc, err := s.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListOptions(ctx, s.db, svc.ID)
}

func (s *Service) CreateTier(ctx context.Context, serviceID string, req domain.CreateTierRequest) (domain.Tier, error) {
	svc, err := s.GetService(ctx, serviceID)
	if err != nil {
		return domain.Tier{}, err
	}

	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return domain.Tier{}, domain.ErrInvalidName
	case req.TurnaroundDays < 0:
		return domain.Tier{}, domain.ErrInvalidTurnaround
	case req.RevisionsAllowed < 0:
		return domain.Tier{}, domain.ErrInvalidRevisions
	case !validPercentage(req.DepositPercentage):
		return domain.Tier{}, domain.ErrInvalidPercentage
	case !validPercentage(req.RushFeePercentage):
		return domain.Tier{}, domain.ErrInvalidPercentage.WithField("rush_fee_percentage")
	}

	now := s.clock.Now()
	tier := domain.Tier{
		ID:                s.genID.Generate(),
		ServiceID:         svc.ID,
		Name:              name,
		TurnaroundDays:    req.TurnaroundDays,
		RevisionsAllowed:  req.RevisionsAllowed,
		DepositPercentage: req.DepositPercentage,
		RushFeePercentage: req.RushFeePercentage,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertTier(ctx, s.db, &tier); err != nil {
		return domain.Tier{}, err
	}
	return tier, nil
}

func (s *Service) GetTier(ctx context.Context, id string) (domain.Tier, error) {
	tierID, err := parseID(id)
	if err != nil {
		return domain.Tier{}, err
	}
	tier, err := s.repo.FindTierByID(ctx, s.db, tierID)
	if err != nil {
		return domain.Tier{}, err
	}
	if tier == nil {
		return domain.Tier{}, domain.ErrTierNotFound
	}
	return *tier, nil
}

func (s *Service) ListTiers(ctx context.Context, serviceID string) ([]domain.Tier, error) {
	svc, err := s.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTiers(ctx, s.db, svc.ID)
}

func (s *Service) AddDeliverable(ctx context.Context, tierID string, req domain.AddDeliverableRequest) (domain.TierDeliverable, error) {
	tier, err := s.GetTier(ctx, tierID)
	if err != nil {
		return domain.TierDeliverable{}, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.TierDeliverable{}, domain.ErrInvalidName.WithField("title")
	}

	item := domain.TierDeliverable{
		ID:          s.genID.Generate(),
		TierID:      tier.ID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Position:    req.Position,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertDeliverable(ctx, s.db, &item); err != nil {
		return domain.TierDeliverable{}, err
	}
	return item, nil
}

func (s *Service) ListDeliverables(ctx context.Context, tierID string) ([]domain.TierDeliverable, error) {
	tier, err := s.GetTier(ctx, tierID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDeliverables(ctx, s.db, tier.ID)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func validPercentage(value decimal.Decimal) bool {
	return !value.IsNegative() && value.LessThanOrEqual(hundred)
}
