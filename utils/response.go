package utils

import (
	"github.com/gin-gonic/gin"
)

// PageData is the data payload of a paginated list response
type PageData[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageData builds a page payload; a nil items slice is sent as []
func NewPageData[T any](items []T, page, limit, total int) PageData[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return PageData[T]{Items: items, Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	})
}

// JSONErrorCode sends an error response carrying a machine-readable code and
// aborts the handler chain
func JSONErrorCode(c *gin.Context, status int, code string, err error, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
		"code":    code,
	})
}
