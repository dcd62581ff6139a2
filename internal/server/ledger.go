package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/vendora/internal/ledger/domain"
)

func (s *Server) ListTransactions(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		Type string `form:"type"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.ListTransactions(c.Request.Context(), ledgerdomain.ListTransactionRequest{
		VendorID: vendorID,
		Type:     ledgerdomain.TxType(strings.TrimSpace(query.Type)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type refundRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) RefundTransaction(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	txID, err := parseIDParam(c, "txId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	amount, err := parseDecimalField(req.Amount, "amount")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.Refund(c.Request.Context(), vendorID, txID, amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBalance(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balance, err := s.ledgerSvc.AvailableBalance(c.Request.Context(), vendorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"available_balance": balance}})
}

func (s *Server) ListPayouts(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.ListPayouts(c.Request.Context(), vendorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type requestPayoutRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) RequestPayout(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req requestPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	amount, err := parseDecimalField(req.Amount, "amount")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.ledgerSvc.RequestPayout(c.Request.Context(), vendorID, amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAnalytics(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query struct {
		Granularity string `form:"granularity"`
		From        string `form:"from"`
		To          string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	now := time.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	granularity := ledgerdomain.Granularity(strings.TrimSpace(query.Granularity))
	if granularity == "" {
		granularity = ledgerdomain.GranularityDay
	}

	resp, err := s.ledgerSvc.Analytics(c.Request.Context(), ledgerdomain.AnalyticsRequest{
		VendorID:    vendorID,
		Granularity: granularity,
		From:        from,
		To:          to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
