package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/dumpsheet/internal/domain"
)

func TestParseHeader_MissingRequired(t *testing.T) {
	_, err := ParseHeader([]string{"Nummer", "titel"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "dumpert-link")
}

func TestHeader_RowFromCells(t *testing.T) {
	h, err := ParseHeader([]string{"Nummer", "Dumpert-Link", "Opmerking", "Titel", "Media URL"})
	require.NoError(t, err)

	r := h.RowFromCells(5, []string{"12", "https://x/", "note", "T"})
	assert.Equal(t, 5, r.Line)
	assert.Equal(t, "12", r.Number())
	assert.Equal(t, "https://x/", r.Link())
	assert.Equal(t, "T", r.Get(domain.ColTitle))

	v, ok := r.Values[domain.ColMediaURL]
	assert.True(t, ok, "表头存在的列即使单元格缺失也应出现")
	assert.Equal(t, "", v)

	_, ok = r.Values[domain.ColViews]
	assert.False(t, ok, "表头不存在的列不应出现")
}

func TestHeader_OutputCells(t *testing.T) {
	h, err := ParseHeader([]string{"nummer", "dumpert-link", "views", "titel"})
	require.NoError(t, err)

	r := domain.Row{Line: 2, Values: map[domain.Column]string{domain.ColTitle: "T", domain.ColViews: "10"}}
	cells := h.OutputCells(r)
	require.Len(t, cells, 2)
	assert.Equal(t, Cell{Col: 3, Column: domain.ColTitle, Value: "T"}, cells[0])
	assert.Equal(t, Cell{Col: 2, Column: domain.ColViews, Value: "10"}, cells[1])
}
