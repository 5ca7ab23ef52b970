package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query       string
		page, limit int
	}{
		{"", 1, 10},
		{"page=3&limit=20", 3, 20},
		{"page=0&limit=0", 1, 10},
		{"page=x&limit=y", 1, 10},
		{"limit=1000", 1, 100},
		{"page=-2&limit=-5", 1, 10},
		{"page=%20%204%20", 4, 10},
		{"page=1000000000000000000", 1000000000000000000, 10},
		{"page=99999999999999999999999", 1, 10},
	}
	for _, c := range cases {
		ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
		ctx.Request = httptest.NewRequest(http.MethodGet, "/posts?"+c.query, nil)
		page, limit := parsePagination(ctx)
		assert.Equal(t, c.page, page, c.query)
		assert.Equal(t, c.limit, limit, c.query)
	}
}
