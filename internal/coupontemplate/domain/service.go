package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

// CreateRequest carries the full template document. ValidFrom/ValidTo are
// RFC 3339 or YYYY-MM-DD strings; parse failures reject before any write.
type CreateRequest struct {
	Title       string         `json:"title"`
	Status      string         `json:"status"`
	ValidFrom   string         `json:"valid_from"`
	ValidTo     string         `json:"valid_to"`
	UseRule     map[string]any `json:"use_rule"`
	IssuePolicy map[string]any `json:"issue_policy"`
}

// UpdateRequest replaces the stored documents wholesale. There is no
// partial merge of rule or policy documents.
type UpdateRequest struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Status      string         `json:"status"`
	ValidFrom   string         `json:"valid_from"`
	ValidTo     string         `json:"valid_to"`
	UseRule     map[string]any `json:"use_rule"`
	IssuePolicy map[string]any `json:"issue_policy"`
}

type ListRequest struct {
	Status  string
	Title   string
	SortBy  string
	OrderBy string
}

type Response struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Status      TemplateStatus `json:"status"`
	ValidFrom   *time.Time     `json:"valid_from,omitempty"`
	ValidTo     *time.Time     `json:"valid_to,omitempty"`
	UseRule     map[string]any `json:"use_rule"`
	IssuePolicy map[string]any `json:"issue_policy,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

var (
	ErrNotFound  = errors.New("not_found")
	ErrInvalidID = errors.New("invalid_id")
)
