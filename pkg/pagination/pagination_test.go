package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/items?"+query, nil)
	return c
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, Limit: 20, Offset: 0}},
		{"explicit", "page=3&limit=10", Params{Page: 3, Limit: 10, Offset: 20}},
		{"negative page", "page=-2&limit=10", Params{Page: 1, Limit: 10, Offset: 0}},
		{"limit capped", "limit=500", Params{Page: 1, Limit: 100, Offset: 0}},
		{"garbage", "page=x&limit=y", Params{Page: 1, Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(contextWithQuery(tt.query)))
		})
	}
}

func TestNewResult(t *testing.T) {
	res := NewResult[string](nil, 41, Params{Page: 2, Limit: 20})

	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 2, res.Page)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 0, TotalPages(10, 0))
}
