package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/identity/domain"
	"github.com/smallbiznis/vendora/internal/identity/password"
	"github.com/smallbiznis/vendora/internal/identity/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sessionTTL = 12 * time.Hour

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
	Repo  repository.Repository
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	secret []byte
	repo   repository.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("identity.service"),
		genID:  p.GenID,
		secret: []byte(p.Cfg.AuthJWTSecret),
		repo:   p.Repo,
	}
}

type sessionClaims struct {
	Role     string `json:"role"`
	VendorID string `json:"vendor_id,omitempty"`
	ActingAs string `json:"act,omitempty"`
	jwt.RegisteredClaims
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return domain.User{}, domain.ErrInvalidPassword
	}

	role := req.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		return domain.User{}, domain.ErrUserExists
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.Session{}, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	return s.issue(*user, 0)
}

func (s *Service) Verify(ctx context.Context, token string) (domain.Identity, error) {
	_ = ctx

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidSession
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, domain.ErrSessionExpired
		}
		return domain.Identity{}, domain.ErrInvalidSession
	}

	userID, err := snowflake.ParseString(claims.Subject)
	if err != nil || userID == 0 {
		return domain.Identity{}, domain.ErrInvalidSession
	}

	id := domain.Identity{
		UserID: userID,
		Role:   domain.Role(claims.Role),
	}
	if claims.VendorID != "" {
		if vendorID, err := snowflake.ParseString(claims.VendorID); err == nil {
			id.VendorID = vendorID
		}
	}
	if claims.ActingAs != "" {
		if actingAs, err := snowflake.ParseString(claims.ActingAs); err == nil {
			id.ActingAs = actingAs
		}
	}
	return id, nil
}

func (s *Service) Impersonate(ctx context.Context, admin domain.Identity, targetUserID snowflake.ID) (domain.Session, error) {
	if !admin.IsAdmin() {
		return domain.Session{}, domain.ErrForbidden
	}

	target, err := s.repo.FindByID(ctx, s.db, targetUserID)
	if err != nil {
		return domain.Session{}, err
	}
	if target == nil {
		return domain.Session{}, domain.ErrUserNotFound
	}

	s.log.Info("impersonation session issued",
		zap.String("admin_user_id", admin.UserID.String()),
		zap.String("target_user_id", targetUserID.String()),
	)
	return s.issue(*target, admin.UserID)
}

func (s *Service) AttachVendor(ctx context.Context, userID, vendorID snowflake.ID) error {
	return s.repo.SetVendor(ctx, s.db, userID, vendorID)
}

func (s *Service) issue(user domain.User, actingAs snowflake.ID) (domain.Session, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(sessionTTL)

	claims := &sessionClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if user.VendorID != nil {
		claims.VendorID = user.VendorID.String()
	}
	if actingAs != 0 {
		claims.ActingAs = actingAs.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
