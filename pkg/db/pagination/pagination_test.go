package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sortable = Sortable{
	"created_at": "created_at",
	"total":      "total_amount",
}

func TestNormalizeDefaults(t *testing.T) {
	p, err := Params{}.Normalize(sortable, "created_at")
	require.NoError(t, err)

	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, SortDesc, p.SortOrder)
}

func TestNormalizeClampsAndLowercases(t *testing.T) {
	p, err := Params{Limit: 5000, Offset: -3, SortBy: "TOTAL", SortOrder: "ASC"}.Normalize(sortable, "created_at")
	require.NoError(t, err)

	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
	assert.Equal(t, "total", p.SortBy)
	assert.Equal(t, SortAsc, p.SortOrder)
}

func TestNormalizeRejectsUnknownSort(t *testing.T) {
	if _, err := (Params{SortBy: "password"}).Normalize(sortable, "created_at"); err == nil {
		t.Fatalf("expected unknown sort key to be rejected")
	}
	if _, err := (Params{SortOrder: "sideways"}).Normalize(sortable, "created_at"); err == nil {
		t.Fatalf("expected unknown sort order to be rejected")
	}
}
