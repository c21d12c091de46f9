package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	orderdomain "github.com/tably/tably/internal/order/domain"
)

func (s *Server) createOrder(c *gin.Context) {
	var req orderdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}

	resp, err := s.orders.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) getOrder(c *gin.Context) {
	resp, err := s.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listOrders(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondError(c, templatedomain.NewFieldError("user_id", "required", "user_id query parameter is required"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	resp, err := s.orders.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) setOrderStatus(c *gin.Context) {
	var req orderdomain.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.orders.SetStatus(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) advanceOrder(c *gin.Context) {
	resp, err := s.orders.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) createAmendment(c *gin.Context) {
	var req orderdomain.AmendmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	req.OrderID = c.Param("id")

	resp, err := s.orders.CreateAmendment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) listAmendments(c *gin.Context) {
	resp, err := s.orders.ListAmendments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
