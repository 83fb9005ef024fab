package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Clamps(t *testing.T) {
	assert.Equal(t, Params{Page: 1, PerPage: 20}, New(0, 0))
	assert.Equal(t, Params{Page: 3, PerPage: 100}, New(3, 500))
	assert.Equal(t, Params{Page: 2, PerPage: 50}, New(2, 50))
}

func TestParams_OffsetAndNext(t *testing.T) {
	p := New(1, 50)
	assert.Equal(t, 0, p.Offset())
	p = p.Next().Next()
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 100, p.Offset())
}

func TestParams_Encode(t *testing.T) {
	q := url.Values{"status": {"published"}}
	New(4, 25).Encode(q)
	assert.Equal(t, "page=4&per_page=25&status=published", q.Encode())
}

func TestNewResult(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		page    int
		pages   int
		hasNext bool
	}{
		{"first of many", 45, 1, 3, true},
		{"last page", 45, 3, 3, false},
		{"exact division", 40, 2, 2, false},
		{"empty", 0, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult([]string{"x"}, tt.total, New(tt.page, 20))
			assert.Equal(t, tt.pages, r.TotalPages)
			assert.Equal(t, tt.hasNext, r.HasNext)
		})
	}
}

func TestNewResult_NilData(t *testing.T) {
	r := NewResult[int](nil, 0, DefaultParams())
	assert.NotNil(t, r.Data)
}
