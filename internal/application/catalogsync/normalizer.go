package catalogsync

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/vde76ru/module-sub000/internal/domain/catalog"
	"github.com/vde76ru/module-sub000/internal/domain/integration"
	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/domain/shared/valueobject"
)

// NormalizedItem is a supplier row ready for reconciliation
type NormalizedItem struct {
	ExternalID string
	SKU        string
	Content    catalog.ProductContent
	Quote      catalog.OfferQuote
	// Warnings lists fields that were dropped or defaulted
	Warnings []string
}

// Normalizer turns raw supplier rows into typed catalog data. Locale
// decides how an ambiguous separator is read: in Russian "1,234" is a
// decimal, in English it is a thousands group.
type Normalizer struct {
	locale          language.Tag
	defaultCurrency valueobject.Currency
	upper           cases.Caser
}

// NewNormalizer creates a normalizer. Rows without a currency get defaultCurrency.
func NewNormalizer(locale language.Tag, defaultCurrency valueobject.Currency) *Normalizer {
	if defaultCurrency == "" {
		defaultCurrency = valueobject.DefaultCurrency
	}
	return &Normalizer{
		locale:          locale,
		defaultCurrency: defaultCurrency,
		upper:           cases.Upper(locale),
	}
}

// Normalize validates and converts one row. Only a missing SKU is fatal for
// the row; unparseable money, quantity and measures fall back to empty
// values with a warning.
func (n *Normalizer) Normalize(raw integration.SupplierProduct) (NormalizedItem, error) {
	item := NormalizedItem{}
	warn := func(format string, args ...any) {
		item.Warnings = append(item.Warnings, fmt.Sprintf(format, args...))
	}

	item.SKU = n.NormalizeSKU(raw.SKU)
	if item.SKU == "" {
		return item, shared.NewDomainError(shared.CodeReconciliation, fmt.Sprintf("row %q has no SKU", raw.ExternalID))
	}
	item.ExternalID = strings.TrimSpace(norm.NFKC.String(raw.ExternalID))
	if item.ExternalID == "" {
		item.ExternalID = item.SKU
	}

	name := collapseSpace(norm.NFKC.String(raw.Name))
	if name == "" {
		name = item.SKU
		warn("name missing, using SKU")
	}
	item.Content = catalog.ProductContent{
		Name:        name,
		Description: strings.TrimSpace(raw.Description),
		Brand:       collapseSpace(norm.NFKC.String(raw.Brand)),
		Category:    collapseSpace(norm.NFKC.String(raw.Category)),
		Divisible:   raw.Divisible,
	}

	if raw.Barcode != "" {
		if code, ok := NormalizeBarcode(raw.Barcode); ok {
			item.Content.Barcode = code
		} else {
			warn("barcode %q dropped: want 8, 12, 13 or 14 digits", raw.Barcode)
		}
	}
	if raw.ImageURL != "" {
		if u, ok := NormalizeImageURL(raw.ImageURL); ok {
			item.Content.ImageURL = u
		} else {
			warn("image url %q dropped", raw.ImageURL)
		}
	}
	if raw.Weight != "" {
		if w, err := n.measure(raw.Weight, raw.WeightUnit, valueobject.ToKilograms); err == nil {
			item.Content.WeightKg = &w
		} else {
			warn("weight %q: %v", raw.Weight, err)
		}
	}
	if raw.Volume != "" {
		if v, err := n.measure(raw.Volume, raw.VolumeUnit, valueobject.ToCubicMetres); err == nil {
			item.Content.VolumeM3 = &v
		} else {
			warn("volume %q: %v", raw.Volume, err)
		}
	}

	quote := catalog.OfferQuote{ExternalSKU: strings.TrimSpace(raw.SKU), EnforceMRC: raw.EnforceMRC}
	quote.Currency = n.defaultCurrency
	if raw.Currency != "" {
		if c, err := valueobject.ParseCurrency(currencyAlias(raw.Currency)); err == nil {
			quote.Currency = c
		} else {
			warn("currency %q unknown, using %s", raw.Currency, n.defaultCurrency)
		}
	}
	if cost, err := n.ParseDecimal(raw.Price); err == nil && !cost.IsNegative() {
		quote.Cost = cost
	} else {
		warn("price %q unreadable, offer will not qualify for pricing", raw.Price)
	}
	if raw.MRC != "" {
		if mrc, err := n.ParseDecimal(raw.MRC); err == nil && mrc.IsPositive() {
			quote.MRC = &mrc
		} else {
			warn("mrc %q dropped", raw.MRC)
		}
	}
	if raw.Quantity != "" {
		if qty, err := n.ParseDecimal(raw.Quantity); err == nil && !qty.IsNegative() {
			quote.Quantity = qty
		} else {
			warn("quantity %q unreadable, using 0", raw.Quantity)
		}
	}
	item.Quote = quote
	return item, nil
}

// NormalizeSKU folds full-width characters, trims and upper-cases
func (n *Normalizer) NormalizeSKU(sku string) string {
	sku = strings.TrimSpace(norm.NFKC.String(sku))
	return catalog.NormalizeSKU(n.upper.String(sku))
}

// ParseDecimal reads a number written in the supplier's locale. It accepts
// grouping by spaces, dots or commas and strips currency symbols, e.g.
// "1 234,50 ₽", "1.234,50", "1,234.50" (English) and "> 100" for stock.
func (n *Normalizer) ParseDecimal(s string) (decimal.Decimal, error) {
	s = norm.NFKC.String(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'', r == '_':
		default:
			// currency symbols, units and comparison signs
		}
	}
	// a trailing separator belongs to an abbreviation such as "руб."
	clean := strings.TrimRight(b.String(), ".,")
	if clean == "" || clean == "-" {
		return decimal.Zero, fmt.Errorf("no number in %q", s)
	}

	dots, commas := strings.Count(clean, "."), strings.Count(clean, ",")
	switch {
	case dots > 0 && commas > 0:
		// the later separator is the decimal one
		if strings.LastIndex(clean, ",") > strings.LastIndex(clean, ".") {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case commas > 1:
		clean = strings.ReplaceAll(clean, ",", "")
	case dots > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	case commas == 1:
		if n.commaGroupsThousands() && len(clean)-strings.Index(clean, ",") == 4 {
			clean = strings.Replace(clean, ",", "", 1)
		} else {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %q: %w", s, err)
	}
	return d, nil
}

func (n *Normalizer) commaGroupsThousands() bool {
	base, _ := n.locale.Base()
	switch base.String() {
	case "en", "zh", "ja", "ko":
		return true
	}
	return false
}

func (n *Normalizer) measure(value, unit string, convert func(decimal.Decimal, string) (decimal.Decimal, error)) (decimal.Decimal, error) {
	v, err := n.ParseDecimal(value)
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative")
	}
	unit = strings.TrimSpace(norm.NFKC.String(unit))
	if unit == "" {
		unit = trailingUnit(value)
	}
	return convert(v, strings.ReplaceAll(unit, "³", "3"))
}

// trailingUnit picks a unit written after the number, as in "250 г" or "1.5kg"
func trailingUnit(value string) string {
	value = strings.TrimSpace(norm.NFKC.String(value))
	i := strings.LastIndexFunc(value, func(r rune) bool { return unicode.IsDigit(r) })
	if i < 0 || i == len(value)-1 {
		return ""
	}
	return strings.TrimSpace(value[i+1:])
}

// NormalizeBarcode keeps the digits of an EAN-8, UPC-A, EAN-13 or GTIN-14
func NormalizeBarcode(raw string) (string, bool) {
	s := norm.NFKC.String(raw)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-':
		default:
			return "", false
		}
	}
	code := b.String()
	switch len(code) {
	case 8, 12, 13, 14:
		return code, true
	}
	return "", false
}

// NormalizeImageURL accepts absolute http(s) URLs and upgrades
// protocol-relative ones to https
func NormalizeImageURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return u.String(), true
}

var currencyAliases = map[string]string{
	"РУБ":  "RUB",
	"РУБ.": "RUB",
	"Р":    "RUB",
	"₽":    "RUB",
	"RUR":  "RUB",
	"$":    "USD",
	"€":    "EUR",
	"¥":    "CNY",
	"ТГ":   "KZT",
	"₸":    "KZT",
}

func currencyAlias(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if v, ok := currencyAliases[c]; ok {
		return v
	}
	return c
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
