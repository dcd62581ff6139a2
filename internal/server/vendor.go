package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
)

type createVendorRequest struct {
	CompanyName string `json:"company_name"`
}

// CreateVendor turns the logged-in user into a storefront operator. The
// new vendor starts pending with a provisioned platform subdomain.
func (s *Server) CreateVendor(c *gin.Context) {
	id, ok := currentIdentity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.vendorSvc.Register(c.Request.Context(), vendordomain.RegisterVendorRequest{
		UserID:      id.UserID,
		CompanyName: strings.TrimSpace(req.CompanyName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.identitySvc.AttachVendor(c.Request.Context(), id.UserID, resp.ID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetVendor(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.vendorSvc.GetByID(c.Request.Context(), vendorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateVendorRequest struct {
	CompanyName *string `json:"company_name,omitempty"`
	Theme       *string `json:"theme,omitempty"`
	CustomCSS   *string `json:"custom_css,omitempty"`
	LogoURL     *string `json:"logo_url,omitempty"`
}

func (s *Server) UpdateVendor(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.vendorSvc.Update(c.Request.Context(), vendordomain.UpdateVendorRequest{
		ID:          vendorID,
		CompanyName: req.CompanyName,
		Theme:       req.Theme,
		CustomCSS:   req.CustomCSS,
		LogoURL:     req.LogoURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
