// Package dto holds the request and response shapes of the HTTP API
package dto

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// ErrorDetail is the error member of a failed APIResponse
type ErrorDetail struct {
	Code    string `json:"code" example:"INVALID_FILTER_RANGE"`
	Details any    `json:"details,omitempty"`
}

// PaginationInfo describes one page of a list response
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationInfo derives the page count for total items split in pages of limit
func NewPaginationInfo(total int64, page, limit int) PaginationInfo {
	info := PaginationInfo{Total: total, Page: page, Limit: limit}
	if limit > 0 {
		info.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return info
}
