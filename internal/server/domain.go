package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	storefrontdomain "github.com/smallbiznis/vendora/internal/storefront/domain"
)

func (s *Server) ListDomains(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.storefrontSvc.ListByVendor(c.Request.Context(), vendorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type addDomainRequest struct {
	Name string `json:"name"`
}

func (s *Server) AddDomain(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req addDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.storefrontSvc.AddDomain(c.Request.Context(), storefrontdomain.AddDomainRequest{
		VendorID: vendorID,
		Name:     strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetPrimaryDomain(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	domainID, err := parseIDParam(c, "domainId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.storefrontSvc.SetPrimary(c.Request.Context(), vendorID, domainID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDomain(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	domainID, err := parseIDParam(c, "domainId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.storefrontSvc.Delete(c.Request.Context(), vendorID, domainID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
