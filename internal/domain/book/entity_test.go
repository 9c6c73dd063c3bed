package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBook(t *testing.T) {
	b := NewBook("9787115428028", "Go语言实战", "William Kennedy", "Programming", 2016, 3)

	assert.Equal(t, 3, b.TotalCopies)
	assert.Equal(t, 3, b.AvailableCopies, "新入库图书全部可借")
	assert.Equal(t, 0, b.OnLoan())
	assert.True(t, b.CheckInvariant())
}

func TestBook_ResizeCopies(t *testing.T) {
	t.Run("增加馆藏同步增加可借数量", func(t *testing.T) {
		b := &Book{TotalCopies: 3, AvailableCopies: 1}
		assert.NoError(t, b.ResizeCopies(5))
		assert.Equal(t, 5, b.TotalCopies)
		assert.Equal(t, 3, b.AvailableCopies)
		assert.Equal(t, 2, b.OnLoan(), "借出数量不变")
	})

	t.Run("缩减馆藏同步减少可借数量", func(t *testing.T) {
		b := &Book{TotalCopies: 5, AvailableCopies: 4}
		assert.NoError(t, b.ResizeCopies(3))
		assert.Equal(t, 2, b.AvailableCopies)
	})

	t.Run("缩减到少于借出数量时可借为0", func(t *testing.T) {
		b := &Book{TotalCopies: 3, AvailableCopies: 0}
		assert.NoError(t, b.ResizeCopies(1))
		assert.Equal(t, 1, b.TotalCopies)
		assert.Equal(t, 0, b.AvailableCopies)
		assert.True(t, b.CheckInvariant())
	})

	t.Run("总数必须大于0", func(t *testing.T) {
		b := &Book{TotalCopies: 3, AvailableCopies: 3}
		assert.ErrorIs(t, b.ResizeCopies(0), ErrInvalidCopies)
		assert.Equal(t, 3, b.TotalCopies)
	})
}

func TestBook_CheckInvariant(t *testing.T) {
	assert.False(t, (&Book{TotalCopies: 2, AvailableCopies: 3}).CheckInvariant())
	assert.False(t, (&Book{TotalCopies: 2, AvailableCopies: -1}).CheckInvariant())
	assert.False(t, (&Book{TotalCopies: 0, AvailableCopies: 0}).CheckInvariant())
	assert.True(t, (&Book{TotalCopies: 2, AvailableCopies: 0}).CheckInvariant())
}

func TestISBN(t *testing.T) {
	tests := []struct {
		raw   string
		clean string
		valid bool
	}{
		{"9787115428028", "9787115428028", true},
		{"978-7-115-42802-8", "9787115428028", true},
		{" 0-8044-2957-x ", "080442957X", true},
		{"12345", "12345", false},
		{"97871154280X8", "97871154280X8", false},
		{"X804429570", "X804429570", false},
		{"ISBN9787115428", "ISBN9787115428", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			clean := NormalizeISBN(tt.raw)
			assert.Equal(t, tt.clean, clean)
			assert.Equal(t, tt.valid, validISBN(clean))
		})
	}
}

func TestListParams_Normalize(t *testing.T) {
	p := ListParams{Keyword: "  三体 "}.Normalize()
	assert.Equal(t, ListParams{Page: 1, PageSize: 20, Keyword: "三体"}, p)

	p = ListParams{Page: 3, PageSize: 500}.Normalize()
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.PageSize)
}
