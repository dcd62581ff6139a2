package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/customer/domain"
	"github.com/smallbiznis/vendora/internal/customer/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo repository.Repository
}

type ServiceImpl struct {
	db   *gorm.DB
	log  *zap.Logger
	repo repository.Repository
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:   p.DB,
		log:  p.Log.Named("customer.service"),
		repo: p.Repo,
	}
}

func (s *ServiceImpl) List(ctx context.Context, vendorID snowflake.ID) ([]domain.Customer, error) {
	customers, err := s.repo.List(ctx, s.db, vendorID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(customers))
	for _, c := range customers {
		out = append(out, *c)
	}
	return out, nil
}

func (s *ServiceImpl) GetByID(ctx context.Context, vendorID, id snowflake.ID) (domain.Customer, error) {
	customer, err := s.repo.FindByID(ctx, s.db, vendorID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *customer, nil
}
