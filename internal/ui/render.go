package ui

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	"github.com/example/storefront/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var templates = template.Must(template.New("storefront").Funcs(template.FuncMap{
	"inc": func(n int) int { return n + 1 },
	"dec": func(n int) int { return n - 1 },
	"lineItem": func(base string, item LineItemView) lineItemData {
		return lineItemData{Base: base, Item: item}
	},
}).ParseFS(templateFS, "templates/*.html"))

type lineItemData struct {
	Base string
	Item LineItemView
}

// Static — встроенные статические файлы с корнем "static".
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Header — шапка страницы: выбор региона и значок корзины.
type Header struct {
	Regions RegionSelectorView
	Icon    CartIconView
	Path    string
}

type ProductPage struct {
	Header     Header
	Product    domain.Product
	AddToCart  AddToCartView
	FormAction string
}

type CartPage struct {
	Header       Header
	Listing      CartListingView
	ItemsPath    string
	CheckoutPath string
}

func RenderProductPage(w io.Writer, page ProductPage) error {
	return templates.ExecuteTemplate(w, "product_page", page)
}

func RenderCartPage(w io.Writer, page CartPage) error {
	return templates.ExecuteTemplate(w, "cart_page", page)
}
