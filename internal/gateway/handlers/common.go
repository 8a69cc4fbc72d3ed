package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ecobazar-system/internal/apperr"
)

type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *PageMeta   `json:"meta,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

func respondPage(c *gin.Context, data interface{}, meta PageMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// respondError is the single place workflow errors become HTTP responses.
func respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	c.JSON(appErr.Status, APIResponse{Success: false, Error: appErr.Message})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: msg})
}

type PageQuery struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=10"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder"`
}

func bindPage(c *gin.Context) PageQuery {
	var q PageQuery
	_ = c.ShouldBindQuery(&q)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return q
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func (q PageQuery) Meta(total int64) PageMeta {
	return PageMeta{Page: q.Page, Limit: q.Limit, Total: total}
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
