package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/order/domain"
	"github.com/smallbiznis/vendora/internal/order/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  repository.Repository
}

type ServiceImpl struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  repository.Repository
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *ServiceImpl) List(ctx context.Context, req domain.ListOrderRequest) ([]domain.Order, error) {
	if req.Status != "" && !knownStatus(req.Status) {
		return nil, domain.ErrInvalidStatus
	}
	orders, err := s.repo.List(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *ServiceImpl) GetByID(ctx context.Context, vendorID, id snowflake.ID) (domain.Order, error) {
	order, err := s.repo.FindByID(ctx, s.db, vendorID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return *order, nil
}

func (s *ServiceImpl) UpdateStatus(ctx context.Context, vendorID, id snowflake.ID, status domain.Status) (domain.Order, error) {
	if !knownStatus(status) {
		return domain.Order{}, domain.ErrInvalidStatus
	}

	order, err := s.repo.FindByID(ctx, s.db, vendorID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	if !domain.CanTransition(order.Status, status) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	order.Status = status
	order.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, order); err != nil {
		return domain.Order{}, err
	}

	s.log.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(status)),
	)
	return *order, nil
}

func (s *ServiceImpl) MarkPaymentStatus(ctx context.Context, vendorID, id snowflake.ID, status domain.PaymentStatus) (domain.Order, error) {
	order, err := s.repo.FindByID(ctx, s.db, vendorID, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}

	order.PaymentStatus = status
	order.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, order); err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func knownStatus(status domain.Status) bool {
	switch status {
	case domain.StatusPending, domain.StatusProcessing, domain.StatusShipped,
		domain.StatusDelivered, domain.StatusCanceled:
		return true
	}
	return false
}
