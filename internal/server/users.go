package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	coupondomain "github.com/tably/tably/internal/coupon/domain"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	userdomain "github.com/tably/tably/internal/userdirectory/domain"
)

func (s *Server) createUser(c *gin.Context) {
	var req userdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}

	resp, err := s.users.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) listUserCoupons(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	page, err := s.coupons.Wallet(c.Request.Context(), coupondomain.WalletRequest{
		UserID:    c.Param("id"),
		Status:    c.Query("status"),
		Limit:     limit,
		PageToken: c.Query("page_token"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
