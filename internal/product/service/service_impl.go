package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/product/domain"
	"github.com/smallbiznis/vendora/internal/product/repository"
	"github.com/smallbiznis/vendora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  repository.Repository
}

type ServiceImpl struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  repository.Repository
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *ServiceImpl) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:            s.genID.Generate(),
		VendorID:      req.VendorID,
		Name:          name,
		Slug:          slug.Make(name),
		Description:   req.Description,
		Price:         req.Price.Round(2),
		Currency:      currency,
		StockQuantity: req.StockQuantity,
		Active:        true,
		Variants:      req.Variants,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.repo.Insert(ctx, s.db, &product)
	if db.IsDuplicateKeyErr(err) {
		product.Slug = fmt.Sprintf("%s-%s", product.Slug, strings.ToLower(product.ID.Base36()))
		err = s.repo.Insert(ctx, s.db, &product)
	}
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *ServiceImpl) Update(ctx context.Context, req domain.UpdateProductRequest) (domain.Product, error) {
	product, err := s.repo.FindByID(ctx, s.db, req.VendorID, req.ID)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return domain.Product{}, domain.ErrInvalidPrice
		}
		product.Price = req.Price.Round(2)
	}
	if req.StockQuantity != nil {
		product.StockQuantity = *req.StockQuantity
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if req.Variants != nil {
		product.Variants = req.Variants
	}
	product.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, vendorID, id snowflake.ID) error {
	product, err := s.repo.FindByID(ctx, s.db, vendorID, id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, s.db, vendorID, id)
}

func (s *ServiceImpl) GetByID(ctx context.Context, vendorID, id snowflake.ID) (domain.Product, error) {
	product, err := s.repo.FindByID(ctx, s.db, vendorID, id)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *ServiceImpl) GetForSale(ctx context.Context, vendorID, id snowflake.ID) (domain.Product, error) {
	product, err := s.GetByID(ctx, vendorID, id)
	if err != nil {
		return domain.Product{}, err
	}
	if !product.Active {
		return domain.Product{}, domain.ErrNotFound
	}
	return product, nil
}

func (s *ServiceImpl) GetBySlug(ctx context.Context, vendorID snowflake.ID, productSlug string) (domain.Product, error) {
	product, err := s.repo.FindBySlug(ctx, s.db, vendorID, productSlug)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil || !product.Active {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *ServiceImpl) List(ctx context.Context, req domain.ListProductRequest) ([]domain.Product, error) {
	products, err := s.repo.List(ctx, s.db, req.VendorID, req.ActiveOnly)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		out = append(out, *p)
	}
	return out, nil
}
