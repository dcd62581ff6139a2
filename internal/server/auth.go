package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	cartdomain "github.com/smallbiznis/vendora/internal/cart/domain"
	identitydomain "github.com/smallbiznis/vendora/internal/identity/domain"
	"github.com/smallbiznis/vendora/internal/identity/session"
	"go.uber.org/zap"
)

type registerUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) RegisterUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.identitySvc.Register(c.Request.Context(), identitydomain.RegisterRequest{
		Email:    strings.TrimSpace(req.Email),
		Name:     strings.TrimSpace(req.Name),
		Password: req.Password,
		Role:     identitydomain.RoleCustomer,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.identitySvc.Login(c.Request.Context(), identitydomain.LoginRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.Token, result.ExpiresAt)
	s.mergeAnonymousCart(c, result.User.ID)

	c.JSON(http.StatusOK, gin.H{"data": result.User})
}

// mergeAnonymousCart folds the shopper's anonymous cart into their user
// cart after login. Only applies on storefront hosts; failures are logged
// and never block the login.
func (s *Server) mergeAnonymousCart(c *gin.Context, userID snowflake.ID) {
	sf, ok := currentStorefront(c)
	if !ok {
		return
	}
	key, err := c.Cookie(session.CartCookieName)
	if err != nil || strings.TrimSpace(key) == "" {
		return
	}

	if err := s.cartSvc.Merge(c.Request.Context(), sf.VendorID,
		cartdomain.OwnerKeyForSession(key), cartdomain.OwnerKeyForUser(userID)); err != nil {
		s.log.Warn("cart merge failed",
			zap.String("vendor_id", sf.VendorID.String()),
			zap.Error(err),
		)
		return
	}
	s.sessions.ClearCartKey(c)
}

func (s *Server) Logout(c *gin.Context) {
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Me(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp := gin.H{
		"user_id": id.UserID.String(),
		"role":    id.Role,
	}
	if id.VendorID != 0 {
		resp["vendor_id"] = id.VendorID.String()
	}
	if id.ActingAs != 0 {
		resp["acting_as"] = id.ActingAs.String()
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
