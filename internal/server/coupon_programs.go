package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	programdomain "github.com/tably/tably/internal/couponprogram/domain"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
	issuancedomain "github.com/tably/tably/internal/issuance/domain"
)

func (s *Server) createProgram(c *gin.Context) {
	var req programdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}

	resp, err := s.programs.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) getProgram(c *gin.Context) {
	resp, err := s.programs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listPrograms(c *gin.Context) {
	resp, err := s.programs.List(c.Request.Context(), programdomain.ListRequest{
		Status:  c.Query("status"),
		Mode:    c.Query("distribution_mode"),
		Name:    c.Query("name"),
		SortBy:  c.Query("sort_by"),
		OrderBy: c.Query("order_by"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) updateProgram(c *gin.Context) {
	var req programdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.programs.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// issueProgram is the push-issuance endpoint. Rate limited per program
// so a runaway admin script cannot drain a campaign.
func (s *Server) issueProgram(c *gin.Context) {
	programID := c.Param("id")

	if !s.issueLimiter.Allow(c.Request.Context(), programID) {
		c.JSON(http.StatusTooManyRequests, errorPayload{
			Error: "rate_limited",
			Code:  "issue_rate_exceeded",
		})
		return
	}

	var req issuancedomain.IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	req.ProgramID = programID
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	resp, err := s.issuance.Issue(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
