package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/vendora/internal/checkout/domain"
	"gorm.io/datatypes"
)

type checkoutRequest struct {
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	PaymentMethod   string         `json:"payment_method"`
	ShippingAddress datatypes.JSON `json:"shipping_address,omitempty"`
	BillingAddress  datatypes.JSON `json:"billing_address,omitempty"`
}

func (s *Server) Checkout(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.checkoutSvc.Checkout(c.Request.Context(), checkoutdomain.CheckoutRequest{
		VendorID:        sf.VendorID,
		OwnerKey:        s.cartOwnerKey(c),
		Email:           strings.TrimSpace(req.Email),
		Name:            strings.TrimSpace(req.Name),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}

// ConfirmOrderPayment settles a non-COD order: marks it paid and books
// the ledger payment with the platform fee.
func (s *Server) ConfirmOrderPayment(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	orderID, err := parseIDParam(c, "orderId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.checkoutSvc.ConfirmPayment(c.Request.Context(), vendorID, orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": order})
}
