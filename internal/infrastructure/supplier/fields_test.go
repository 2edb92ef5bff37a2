package supplier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalField(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"Артикул", FieldSKU, true},
		{"Vendor Code", FieldSKU, true},
		{"vendor-code", FieldSKU, true},
		{"Цена", FieldPrice, true},
		{" COST ", FieldPrice, true},
		{"EAN13", FieldBarcode, true},
		{"Остаток", FieldQuantity, true},
		{"Color Name", "color_name", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, known := CanonicalField(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestProductFromFields(t *testing.T) {
	p := ProductFromFields(map[string]string{
		"Артикул":       "ab-100",
		"Наименование":  "Кабель ВВГ 3х2.5",
		"Цена":          "1 234,50",
		"Остаток":       "12",
		"РРЦ":           "1500",
		"Производитель": "Rexant",
		"Цвет":          "черный",
		"Пустое":        "  ",
	})

	assert.Equal(t, "ab-100", p.SKU)
	assert.Equal(t, "ab-100", p.ExternalID, "external id falls back to sku")
	assert.Equal(t, "Кабель ВВГ 3х2.5", p.Name)
	assert.Equal(t, "1 234,50", p.Price)
	assert.Equal(t, "12", p.Quantity)
	assert.Equal(t, "1500", p.MRC)
	assert.Equal(t, "Rexant", p.Brand)
	assert.Equal(t, map[string]string{"цвет": "черный"}, p.Attributes)
}

func TestProductFromFields_Flags(t *testing.T) {
	p := ProductFromFields(map[string]string{"id": "7", "enforce_mrc": "да", "divisible": "true"})
	assert.Equal(t, "7", p.ExternalID)
	assert.True(t, p.EnforceMRC)
	assert.True(t, p.Divisible)

	p = ProductFromFields(map[string]string{"id": "8", "enforce_mrc": "нет"})
	assert.False(t, p.EnforceMRC)
}
