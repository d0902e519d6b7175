package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID("7d9f3c1e-2b4a-4c8e-9f1a-0b2c3d4e5f60"))
	assert.False(t, IsUUID("7d9f3c1e2b4a4c8e9f1a0b2c3d4e5f60"), "hyphens are required")
	assert.False(t, IsUUID("guest-1234"))
	assert.False(t, IsUUID(""))
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Nil(t, StringPtr("   "))
	assert.Equal(t, "a@b.co", *StringPtr(" a@b.co "))
	assert.Equal(t, "", Deref(nil))
}

func TestStatusAndMessageOf(t *testing.T) {
	err := WrapError(NotFoundError("Cart not found", nil), "load")
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Equal(t, "Cart not found", MessageOf(err))

	plain := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(plain))
	assert.Equal(t, ErrInternalServer, MessageOf(plain))
}

func TestNewPagination(t *testing.T) {
	cases := []struct {
		query               string
		page, limit, offset int
	}{
		{"", 1, DefaultPaginationLimit, 0},
		{"?page=3&limit=20", 3, 20, 40},
		{"?page=0&limit=-5", 1, DefaultPaginationLimit, 0},
		{"?limit=1000", 1, MaxPaginationLimit, 0},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/admin/carts"+tc.query, nil)

		p := NewPagination(c)
		assert.Equal(t, tc.page, p.Page, tc.query)
		assert.Equal(t, tc.limit, p.Limit, tc.query)
		assert.Equal(t, tc.offset, p.Offset, tc.query)
	}

	p := &Pagination{Limit: 10}
	p.SetTotal(21)
	assert.Equal(t, 3, p.LastPage)
}
