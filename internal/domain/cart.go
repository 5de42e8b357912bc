package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency — валюта отображения, когда у варианта нет цен.
const DefaultCurrency = "USD"

// CartSnapshot — состояние корзины на стороне бэкенда. Локально не кэшируется:
// после любой мутации считается устаревшим.
type CartSnapshot struct {
	ID     string     `json:"id"`
	Items  []LineItem `json:"items"`
	Region Region     `json:"region"`
}

// ItemCount — сумма количеств по всем позициям.
func (c CartSnapshot) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Total — сумма позиций в минимальных единицах валюты.
func (c CartSnapshot) Total() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Subtotal()
	}
	return total
}

// IsEmpty — в снимке нет позиций.
func (c CartSnapshot) IsEmpty() bool { return len(c.Items) == 0 }

// LineItem — позиция корзины: вариант и количество.
type LineItem struct {
	ID        string   `json:"id"`
	VariantID string   `json:"variant_id"`
	Quantity  int      `json:"quantity"`
	UnitPrice int64    `json:"unit_price"`
	Title     string   `json:"title"`
	Thumbnail string   `json:"thumbnail"`
	Variant   *Variant `json:"variant,omitempty"`
}

func (li LineItem) Subtotal() int64 { return li.UnitPrice * int64(li.Quantity) }

// Currency — валюта позиции берётся из первой цены варианта.
func (li LineItem) Currency() string {
	if li.Variant != nil && len(li.Variant.Prices) > 0 && li.Variant.Prices[0].CurrencyCode != "" {
		return li.Variant.Prices[0].CurrencyCode
	}
	return DefaultCurrency
}

// VariantTitle возвращает название варианта или заглушку для списка корзины.
func (li LineItem) VariantTitle() string {
	if li.Variant != nil && li.Variant.Title != "" {
		return li.Variant.Title
	}
	return "Default Variant"
}

// Variant — покупаемый SKU товара.
type Variant struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Prices   []Price         `json:"prices"`
	Metadata VariantMetadata `json:"metadata"`
}

type VariantMetadata struct {
	Handle string `json:"handle"`
}

// Price — сумма в минимальных единицах валюты.
type Price struct {
	Amount       int64  `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// PriceIn возвращает цену в валюте, иначе первую из списка.
func (v Variant) PriceIn(currency string) (Price, bool) {
	for _, p := range v.Prices {
		if strings.EqualFold(p.CurrencyCode, currency) {
			return p, true
		}
	}
	if len(v.Prices) > 0 {
		return v.Prices[0], true
	}
	return Price{}, false
}

// Product — товар каталога с вариантами.
type Product struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Handle    string    `json:"handle"`
	Thumbnail string    `json:"thumbnail"`
	Variants  []Variant `json:"variants"`
}

// Region — рынок/валюта, влияющие на отображаемые цены.
type Region struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CurrencyCode string `json:"currency_code"`
}

// Code — код региона в URL: валюта в нижнем регистре.
func (r Region) Code() string { return strings.ToLower(r.CurrencyCode) }

// FormatMoney — сумма в минимальных единицах как "12.50 usd".
func FormatMoney(minor int64, currency string) string {
	return decimal.New(minor, -2).StringFixed(2) + " " + currency
}
