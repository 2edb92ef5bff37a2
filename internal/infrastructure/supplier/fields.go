package supplier

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vde76ru/module-sub000/internal/domain/integration"
)

// Canonical catalog field names
const (
	FieldExternalID  = "external_id"
	FieldSKU         = "sku"
	FieldName        = "name"
	FieldDescription = "description"
	FieldBrand       = "brand"
	FieldCategory    = "category"
	FieldBarcode     = "barcode"
	FieldImageURL    = "image_url"
	FieldPrice       = "price"
	FieldCurrency    = "currency"
	FieldMRC         = "mrc"
	FieldEnforceMRC  = "enforce_mrc"
	FieldQuantity    = "quantity"
	FieldWeight      = "weight"
	FieldWeightUnit  = "weight_unit"
	FieldVolume      = "volume"
	FieldVolumeUnit  = "volume_unit"
	FieldDivisible   = "divisible"
)

// fieldAliases maps the column and key names suppliers use in practice to
// the canonical field. Keys are compared after keyOf.
var fieldAliases = map[string]string{
	"id":             FieldExternalID,
	"external_id":    FieldExternalID,
	"product_id":     FieldExternalID,
	"item_id":        FieldExternalID,
	"код":            FieldExternalID,
	"sku":            FieldSKU,
	"article":        FieldSKU,
	"articul":        FieldSKU,
	"vendor_code":    FieldSKU,
	"part_number":    FieldSKU,
	"артикул":        FieldSKU,
	"name":           FieldName,
	"title":          FieldName,
	"product_name":   FieldName,
	"наименование":   FieldName,
	"название":       FieldName,
	"description":    FieldDescription,
	"desc":           FieldDescription,
	"описание":       FieldDescription,
	"brand":          FieldBrand,
	"manufacturer":   FieldBrand,
	"vendor":         FieldBrand,
	"бренд":          FieldBrand,
	"производитель":  FieldBrand,
	"category":       FieldCategory,
	"category_name":  FieldCategory,
	"категория":      FieldCategory,
	"barcode":        FieldBarcode,
	"ean":            FieldBarcode,
	"ean13":          FieldBarcode,
	"gtin":           FieldBarcode,
	"upc":            FieldBarcode,
	"штрихкод":       FieldBarcode,
	"image":          FieldImageURL,
	"image_url":      FieldImageURL,
	"picture":        FieldImageURL,
	"photo":          FieldImageURL,
	"изображение":    FieldImageURL,
	"price":          FieldPrice,
	"cost":           FieldPrice,
	"purchase_price": FieldPrice,
	"цена":           FieldPrice,
	"currency":       FieldCurrency,
	"валюта":         FieldCurrency,
	"mrc":            FieldMRC,
	"rrp":            FieldMRC,
	"min_price":      FieldMRC,
	"ррц":            FieldMRC,
	"мрц":            FieldMRC,
	"enforce_mrc":    FieldEnforceMRC,
	"mrc_enforced":   FieldEnforceMRC,
	"quantity":       FieldQuantity,
	"qty":            FieldQuantity,
	"stock":          FieldQuantity,
	"available":      FieldQuantity,
	"остаток":        FieldQuantity,
	"количество":     FieldQuantity,
	"weight":         FieldWeight,
	"вес":            FieldWeight,
	"weight_unit":    FieldWeightUnit,
	"volume":         FieldVolume,
	"объем":          FieldVolume,
	"объём":          FieldVolume,
	"volume_unit":    FieldVolumeUnit,
	"divisible":      FieldDivisible,
	"is_divisible":   FieldDivisible,
}

// keyOf lowercases a header and joins its words with underscores
func keyOf(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.'
	}), "_")
}

// CanonicalField resolves an alias to its canonical field, or returns the
// normalized key unchanged when it is not a known alias
func CanonicalField(name string) (string, bool) {
	key := keyOf(name)
	if f, ok := fieldAliases[key]; ok {
		return f, true
	}
	return key, false
}

// ProductFromFields builds a raw supplier product from a flat record.
// Unknown keys are kept as attributes. When two aliases of one field are
// present, the first non-empty value in sorted key order wins.
func ProductFromFields(fields map[string]string) integration.SupplierProduct {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var p integration.SupplierProduct
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	for _, k := range keys {
		v := strings.TrimSpace(fields[k])
		if v == "" {
			continue
		}
		field, known := CanonicalField(k)
		if !known {
			if p.Attributes == nil {
				p.Attributes = make(map[string]string)
			}
			p.Attributes[field] = v
			continue
		}
		switch field {
		case FieldExternalID:
			set(&p.ExternalID, v)
		case FieldSKU:
			set(&p.SKU, v)
		case FieldName:
			set(&p.Name, v)
		case FieldDescription:
			set(&p.Description, v)
		case FieldBrand:
			set(&p.Brand, v)
		case FieldCategory:
			set(&p.Category, v)
		case FieldBarcode:
			set(&p.Barcode, v)
		case FieldImageURL:
			set(&p.ImageURL, v)
		case FieldPrice:
			set(&p.Price, v)
		case FieldCurrency:
			set(&p.Currency, v)
		case FieldMRC:
			set(&p.MRC, v)
		case FieldEnforceMRC:
			p.EnforceMRC = p.EnforceMRC || parseBool(v)
		case FieldQuantity:
			set(&p.Quantity, v)
		case FieldWeight:
			set(&p.Weight, v)
		case FieldWeightUnit:
			set(&p.WeightUnit, v)
		case FieldVolume:
			set(&p.Volume, v)
		case FieldVolumeUnit:
			set(&p.VolumeUnit, v)
		case FieldDivisible:
			p.Divisible = p.Divisible || parseBool(v)
		}
	}
	if p.ExternalID == "" {
		p.ExternalID = p.SKU
	}
	return p
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "да", "y", "yes", "on":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}
