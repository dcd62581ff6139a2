package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cartdomain "github.com/smallbiznis/vendora/internal/cart/domain"
	"gorm.io/datatypes"
)

// cartOwnerKey identifies the shopper's cart: logged-in users get a
// durable user key, anonymous shoppers a cookie-backed session key.
func (s *Server) cartOwnerKey(c *gin.Context) string {
	if id, ok := currentIdentity(c); ok {
		return cartdomain.OwnerKeyForUser(id.UserID)
	}
	return cartdomain.OwnerKeyForSession(s.sessions.EnsureCartKey(c))
}

func (s *Server) GetCart(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	resp, err := s.cartSvc.Get(c.Request.Context(), sf.VendorID, s.cartOwnerKey(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type addCartItemRequest struct {
	ProductID string         `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Variant   datatypes.JSON `json:"variant,omitempty"`
}

func (s *Server) AddCartItem(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	productID, err := parseSnowflakeField(req.ProductID, "product_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.cartSvc.AddItem(c.Request.Context(), cartdomain.AddItemRequest{
		VendorID:  sf.VendorID,
		OwnerKey:  s.cartOwnerKey(c),
		ProductID: productID,
		Quantity:  req.Quantity,
		Variant:   req.Variant,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) UpdateCartItem(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	itemID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cartSvc.UpdateItemQuantity(c.Request.Context(), sf.VendorID, s.cartOwnerKey(c), itemID, req.Quantity)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveCartItem(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	itemID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.cartSvc.RemoveItem(c.Request.Context(), sf.VendorID, s.cartOwnerKey(c), itemID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ClearCart(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.cartSvc.Clear(c.Request.Context(), sf.VendorID, s.cartOwnerKey(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
