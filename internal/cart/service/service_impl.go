package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/vendora/internal/cart/domain"
	"github.com/smallbiznis/vendora/internal/cart/repository"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	productdomain "github.com/smallbiznis/vendora/internal/product/domain"
	"github.com/smallbiznis/vendora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.PlatformPolicyHolder
	Repo     repository.Repository
	Products productdomain.Service
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.PlatformPolicyHolder
	repo     repository.Repository
	products productdomain.Service
}

func New(p Params) domain.Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("cart.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		repo:     p.Repo,
		products: p.Products,
	}
}

func (s *ServiceImpl) Get(ctx context.Context, vendorID snowflake.ID, ownerKey string) (domain.Cart, error) {
	cart, err := s.repo.Find(ctx, s.db, vendorID, ownerKey)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart == nil {
		return emptyCart(vendorID, ownerKey), nil
	}
	items, err := s.repo.LoadItems(ctx, s.db, cart.ID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items
	return *cart, nil
}

func (s *ServiceImpl) AddItem(ctx context.Context, req domain.AddItemRequest) (domain.Cart, error) {
	if req.Quantity < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	product, err := s.products.GetForSale(ctx, req.VendorID, req.ProductID)
	if err != nil {
		return domain.Cart{}, err
	}

	var out domain.Cart
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.lockOrCreate(ctx, tx, req.VendorID, req.OwnerKey)
		if err != nil {
			return err
		}
		items, err := s.repo.LoadItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		merged := false
		for i := range items {
			if items[i].ProductID == req.ProductID && variantKey(items[i].Variant) == variantKey(req.Variant) {
				items[i].Quantity += req.Quantity
				items[i].UpdatedAt = now
				if err := s.repo.SaveItem(ctx, tx, &items[i]); err != nil {
					return err
				}
				merged = true
				break
			}
		}
		if !merged {
			item := domain.CartItem{
				ID:        s.genID.Generate(),
				CartID:    cart.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  req.Quantity,
				Variant:   req.Variant,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.InsertItem(ctx, tx, &item); err != nil {
				return err
			}
			items = append(items, item)
		}

		if err := s.saveTotals(ctx, tx, cart, items); err != nil {
			return err
		}
		out = *cart
		out.Items = items
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return out, nil
}

func (s *ServiceImpl) UpdateItemQuantity(ctx context.Context, vendorID snowflake.ID, ownerKey string, itemID snowflake.ID, quantity int) (domain.Cart, error) {
	if quantity < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	var out domain.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.repo.FindForUpdate(ctx, tx, vendorID, ownerKey)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrCartNotFound
		}
		items, err := s.repo.LoadItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}

		found := false
		for i := range items {
			if items[i].ID == itemID {
				items[i].Quantity = quantity
				items[i].UpdatedAt = s.clock.Now()
				if err := s.repo.SaveItem(ctx, tx, &items[i]); err != nil {
					return err
				}
				found = true
				break
			}
		}
		if !found {
			return domain.ErrItemNotFound
		}

		if err := s.saveTotals(ctx, tx, cart, items); err != nil {
			return err
		}
		out = *cart
		out.Items = items
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return out, nil
}

func (s *ServiceImpl) RemoveItem(ctx context.Context, vendorID snowflake.ID, ownerKey string, itemID snowflake.ID) (domain.Cart, error) {
	var out domain.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.repo.FindForUpdate(ctx, tx, vendorID, ownerKey)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrCartNotFound
		}
		items, err := s.repo.LoadItems(ctx, tx, cart.ID)
		if err != nil {
			return err
		}

		kept := items[:0]
		found := false
		for _, item := range items {
			if item.ID == itemID {
				found = true
				continue
			}
			kept = append(kept, item)
		}
		if !found {
			return domain.ErrItemNotFound
		}
		if err := s.repo.DeleteItem(ctx, tx, itemID); err != nil {
			return err
		}

		if err := s.saveTotals(ctx, tx, cart, kept); err != nil {
			return err
		}
		out = *cart
		out.Items = kept
		return nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return out, nil
}

// Clear resets the cart to empty. Clearing a cart that never existed
// succeeds.
func (s *ServiceImpl) Clear(ctx context.Context, vendorID snowflake.ID, ownerKey string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.repo.FindForUpdate(ctx, tx, vendorID, ownerKey)
		if err != nil {
			return err
		}
		if cart == nil {
			return nil
		}
		if err := s.repo.DeleteItems(ctx, tx, cart.ID); err != nil {
			return err
		}
		return s.saveTotals(ctx, tx, cart, nil)
	})
}

func (s *ServiceImpl) Merge(ctx context.Context, vendorID snowflake.ID, sessionKey, userKey string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionCart, err := s.repo.FindForUpdate(ctx, tx, vendorID, sessionKey)
		if err != nil {
			return err
		}
		if sessionCart == nil {
			return nil
		}
		sessionItems, err := s.repo.LoadItems(ctx, tx, sessionCart.ID)
		if err != nil {
			return err
		}
		if len(sessionItems) == 0 {
			return s.repo.Delete(ctx, tx, sessionCart.ID)
		}

		userCart, err := s.lockOrCreate(ctx, tx, vendorID, userKey)
		if err != nil {
			return err
		}
		userItems, err := s.repo.LoadItems(ctx, tx, userCart.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		for _, item := range sessionItems {
			merged := false
			for i := range userItems {
				if userItems[i].ProductID == item.ProductID && variantKey(userItems[i].Variant) == variantKey(item.Variant) {
					userItems[i].Quantity += item.Quantity
					userItems[i].UpdatedAt = now
					if err := s.repo.SaveItem(ctx, tx, &userItems[i]); err != nil {
						return err
					}
					merged = true
					break
				}
			}
			if merged {
				continue
			}
			moved := domain.CartItem{
				ID:        s.genID.Generate(),
				CartID:    userCart.ID,
				ProductID: item.ProductID,
				Name:      item.Name,
				Price:     item.Price,
				Quantity:  item.Quantity,
				Variant:   item.Variant,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.InsertItem(ctx, tx, &moved); err != nil {
				return err
			}
			userItems = append(userItems, moved)
		}

		if err := s.repo.DeleteItems(ctx, tx, sessionCart.ID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, sessionCart.ID); err != nil {
			return err
		}
		return s.saveTotals(ctx, tx, userCart, userItems)
	})
}

func (s *ServiceImpl) lockOrCreate(ctx context.Context, tx *gorm.DB, vendorID snowflake.ID, ownerKey string) (*domain.Cart, error) {
	cart, err := s.repo.FindForUpdate(ctx, tx, vendorID, ownerKey)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	now := s.clock.Now()
	fresh := emptyCart(vendorID, ownerKey)
	fresh.ID = s.genID.Generate()
	fresh.CreatedAt = now
	fresh.UpdatedAt = now

	err = tx.Transaction(func(inner *gorm.DB) error {
		return s.repo.Insert(ctx, inner, &fresh)
	})
	if db.IsDuplicateKeyErr(err) {
		// Lost the creation race; the winner's row now exists.
		return s.repo.FindForUpdate(ctx, tx, vendorID, ownerKey)
	}
	if err != nil {
		return nil, err
	}
	return &fresh, nil
}

// saveTotals recomputes derived totals from the line items and persists the
// cart row. Subtotal uses exact decimal arithmetic.
func (s *ServiceImpl) saveTotals(ctx context.Context, tx *gorm.DB, cart *domain.Cart, items []domain.CartItem) error {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	policy := s.policy.Get()
	cart.Subtotal = subtotal.Round(2)
	cart.Tax = subtotal.Mul(policy.TaxRate).Round(2)
	cart.Total = cart.Subtotal.Add(cart.Tax).Add(cart.ShippingCost).Sub(cart.Discount).Round(2)
	cart.UpdatedAt = s.clock.Now()
	return s.repo.Save(ctx, tx, cart)
}

func emptyCart(vendorID snowflake.ID, ownerKey string) domain.Cart {
	return domain.Cart{
		VendorID:     vendorID,
		OwnerKey:     ownerKey,
		Subtotal:     decimal.Zero,
		Tax:          decimal.Zero,
		ShippingCost: decimal.Zero,
		Discount:     decimal.Zero,
		Total:        decimal.Zero,
		Items:        []domain.CartItem{},
	}
}

func variantKey(v datatypes.JSON) string {
	if len(v) == 0 {
		return ""
	}
	return string(v)
}
