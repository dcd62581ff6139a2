package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/identity/domain"
	"github.com/smallbiznis/vendora/internal/identity/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const verifySecret = "verify-test-secret"

func setupVerifyService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{AuthJWTSecret: verifySecret},
		Repo:  repository.Provide(),
	})
	return svc, node
}

func signSessionToken(t *testing.T, secret string, claims *sessionClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyParsesClaims(t *testing.T) {
	svc, node := setupVerifyService(t)
	ctx := context.Background()

	userID := node.Generate()
	vendorID := node.Generate()
	adminID := node.Generate()
	token := signSessionToken(t, verifySecret, &sessionClaims{
		Role:     string(domain.RoleVendor),
		VendorID: vendorID.String(),
		ActingAs: adminID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	id, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, userID, id.UserID)
	require.Equal(t, domain.RoleVendor, id.Role)
	require.Equal(t, vendorID, id.VendorID)
	require.Equal(t, adminID, id.ActingAs)
}

func TestVerifyExpiredToken(t *testing.T) {
	svc, node := setupVerifyService(t)

	token := signSessionToken(t, verifySecret, &sessionClaims{
		Role: string(domain.RoleCustomer),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   node.Generate().String(),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := svc.Verify(context.Background(), token)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc, node := setupVerifyService(t)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "not-a-token")
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	// Signed with a different secret.
	forged := signSessionToken(t, "other-secret", &sessionClaims{
		Role: string(domain.RoleCustomer),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   node.Generate().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	_, err = svc.Verify(ctx, forged)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}
