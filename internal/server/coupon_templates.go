package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	templatedomain "github.com/tably/tably/internal/coupontemplate/domain"
)

func (s *Server) createTemplate(c *gin.Context) {
	var req templatedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}

	resp, err := s.templates.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) getTemplate(c *gin.Context) {
	resp, err := s.templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listTemplates(c *gin.Context) {
	resp, err := s.templates.List(c.Request.Context(), templatedomain.ListRequest{
		Status:  c.Query("status"),
		Title:   c.Query("title"),
		SortBy:  c.Query("sort_by"),
		OrderBy: c.Query("order_by"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) updateTemplate(c *gin.Context) {
	var req templatedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, templatedomain.NewFieldError("body", "invalid_json", "request body is not valid JSON"))
		return
	}
	req.ID = c.Param("id")

	resp, err := s.templates.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
