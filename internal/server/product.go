package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	productdomain "github.com/smallbiznis/vendora/internal/product/domain"
	"gorm.io/datatypes"
)

type createProductRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Price         string         `json:"price"`
	Currency      string         `json:"currency"`
	StockQuantity int            `json:"stock_quantity"`
	Variants      datatypes.JSON `json:"variants,omitempty"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	price, err := parseDecimalField(req.Price, "price")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateProductRequest{
		VendorID:      vendorID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         price,
		Currency:      strings.TrimSpace(req.Currency),
		StockQuantity: req.StockQuantity,
		Variants:      req.Variants,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProductRequest struct {
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Price         *string        `json:"price,omitempty"`
	StockQuantity *int           `json:"stock_quantity,omitempty"`
	Active        *bool          `json:"active,omitempty"`
	Variants      datatypes.JSON `json:"variants,omitempty"`
}

func (s *Server) UpdateProduct(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var price *decimal.Decimal
	if req.Price != nil {
		parsed, err := parseDecimalField(*req.Price, "price")
		if err != nil {
			AbortWithError(c, err)
			return
		}
		price = &parsed
	}

	resp, err := s.productSvc.Update(c.Request.Context(), productdomain.UpdateProductRequest{
		ID:            productID,
		VendorID:      vendorID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         price,
		StockQuantity: req.StockQuantity,
		Active:        req.Active,
		Variants:      req.Variants,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProduct(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.productSvc.Delete(c.Request.Context(), vendorID, productID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) GetProduct(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	productID, err := parseIDParam(c, "productId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.productSvc.GetByID(c.Request.Context(), vendorID, productID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		ActiveOnly bool `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), productdomain.ListProductRequest{
		VendorID:   vendorID,
		ActiveOnly: query.ActiveOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
