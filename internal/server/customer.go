package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListCustomers(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.List(c.Request.Context(), vendorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCustomer(c *gin.Context) {
	vendorID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	customerID, err := parseIDParam(c, "customerId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.customerSvc.GetByID(c.Request.Context(), vendorID, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
