package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	productdomain "github.com/smallbiznis/vendora/internal/product/domain"
)

// CurrentStorefront returns the display context of the resolved store:
// branding plus hostname, never internal vendor state.
func (s *Server) CurrentStorefront(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sf})
}

func (s *Server) StoreListProducts(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	products, err := s.productSvc.List(c.Request.Context(), productdomain.ListProductRequest{
		VendorID:   sf.VendorID,
		ActiveOnly: true,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": products})
}

func (s *Server) StoreGetProduct(c *gin.Context) {
	sf, ok := currentStorefront(c)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	product, err := s.productSvc.GetBySlug(c.Request.Context(), sf.VendorID, slug)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}
