package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	storefrontdomain "github.com/smallbiznis/vendora/internal/storefront/domain"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
)

func (s *Server) AdminListVendors(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  int32  `form:"page_size"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	vendors, pageInfo, err := s.vendorSvc.List(c.Request.Context(), vendordomain.ListVendorRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Status:    vendordomain.Status(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vendors, "page_info": pageInfo})
}

func (s *Server) AdminActivateVendor(c *gin.Context) {
	s.adminSetVendorStatus(c, vendordomain.StatusActive)
}

func (s *Server) AdminSuspendVendor(c *gin.Context) {
	s.adminSetVendorStatus(c, vendordomain.StatusSuspended)
}

func (s *Server) adminSetVendorStatus(c *gin.Context, status vendordomain.Status) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.vendorSvc.SetStatus(c.Request.Context(), vendorID, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type assignPlanRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) AdminAssignPlan(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req assignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	planID, err := parseSnowflakeField(req.PlanID, "plan_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// Plan must exist before it can be assigned.
	if _, err := s.subscriptionSvc.GetPlan(c.Request.Context(), planID); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.vendorSvc.AssignPlan(c.Request.Context(), vendorID, planID, vendordomain.SubscriptionTrial)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// AdminChargeVendor books the vendor's periodic subscription fee. There
// is no scheduler; billing runs are operator-triggered.
func (s *Server) AdminChargeVendor(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.subscriptionSvc.ChargeVendor(c.Request.Context(), vendorID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) AdminListPlans(c *gin.Context) {
	resp, err := s.subscriptionSvc.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createPlanRequest struct {
	Name          string  `json:"name"`
	Price         string  `json:"price"`
	Interval      string  `json:"interval"`
	FeePercentage *string `json:"fee_percentage,omitempty"`
	Description   string  `json:"description"`
}

func (s *Server) AdminCreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	price, err := parseDecimalField(req.Price, "price")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	feePct, err := parseOptionalDecimal(req.FeePercentage, "fee_percentage")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.CreatePlan(c.Request.Context(), subscriptiondomain.CreatePlanRequest{
		Name:          strings.TrimSpace(req.Name),
		Price:         price,
		Interval:      subscriptiondomain.Interval(strings.TrimSpace(req.Interval)),
		FeePercentage: feePct,
		Description:   req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdminGetPlan(c *gin.Context) {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.GetPlan(c.Request.Context(), planID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePlanRequest struct {
	Name          *string `json:"name,omitempty"`
	Price         *string `json:"price,omitempty"`
	FeePercentage *string `json:"fee_percentage,omitempty"`
	Description   *string `json:"description,omitempty"`
}

func (s *Server) AdminUpdatePlan(c *gin.Context) {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updatePlanRequest
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
	feePct, err := parseOptionalDecimal(req.FeePercentage, "fee_percentage")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.UpdatePlan(c.Request.Context(), subscriptiondomain.UpdatePlanRequest{
		ID:            planID,
		Name:          req.Name,
		Price:         price,
		FeePercentage: feePct,
		Description:   req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdminDeletePlan(c *gin.Context) {
	planID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.subscriptionSvc.DeletePlan(c.Request.Context(), planID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type verifyDomainRequest struct {
	Verified bool `json:"verified"`
}

func (s *Server) AdminVerifyDomain(c *gin.Context) {
	domainID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req verifyDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.storefrontSvc.Verify(c.Request.Context(), storefrontdomain.VerifyDomainRequest{
		ID:       domainID,
		Verified: req.Verified,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type settlePayoutRequest struct {
	Success bool `json:"success"`
}

func (s *Server) AdminSettlePayout(c *gin.Context) {
	payoutID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req settlePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.CompletePayout(c.Request.Context(), payoutID, req.Success)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdminImpersonate(c *gin.Context) {
	admin, ok := currentIdentity(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	targetID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.identitySvc.Impersonate(c.Request.Context(), admin, targetID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.Token, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"data": result.User})
}

func parseOptionalDecimal(raw *string, field string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	value, err := parseDecimalField(*raw, field)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
