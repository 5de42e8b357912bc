package ui

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/domain"
)

const (
	msgAdded    = "Added to cart"
	msgAddError = "Error adding to cart. Please try again."
)

// AddToCart — выбор варианта, количество и кнопка добавления.
// Выбор варианта синхронный и не обращается к бэкенду.
type AddToCart struct {
	mu       sync.Mutex
	cart     CartActions
	basePath string
	currency string
	variants []domain.Variant
	selected int
	quantity int
	phase    Phase
}

// NewAddToCart выбирает начальный вариант по handle, иначе первый.
// basePath — путь страницы товара без handle варианта.
func NewAddToCart(cart CartActions, variants []domain.Variant, initialHandle, basePath, currency string) *AddToCart {
	selected := -1
	if len(variants) > 0 {
		selected = 0
		if initialHandle != "" {
			for i, v := range variants {
				if v.Metadata.Handle == initialHandle {
					selected = i
					break
				}
			}
		}
	}
	return &AddToCart{
		cart:     cart,
		basePath: basePath,
		currency: currency,
		variants: variants,
		selected: selected,
		quantity: 1,
	}
}

// Selected — выбранный вариант.
func (a *AddToCart) Selected() (domain.Variant, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected < 0 {
		return domain.Variant{}, false
	}
	return a.variants[a.selected], true
}

// SelectedPath — путь страницы выбранного варианта.
func (a *AddToCart) SelectedPath() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected < 0 {
		return a.basePath, false
	}
	return a.pathFor(a.variants[a.selected]), true
}

// SelectVariant меняет выбранный вариант и возвращает новый путь страницы.
// Неизвестный id оставляет выбор без изменений.
func (a *AddToCart) SelectVariant(variantID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, v := range a.variants {
		if v.ID == variantID {
			a.selected = i
			return a.pathFor(v), true
		}
	}
	return "", false
}

// SetQuantity принимает ввод пользователя; значения < 1 заменяются на 1.
func (a *AddToCart) SetQuantity(q int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if q < 1 {
		q = 1
	}
	a.quantity = q
}

// Submit добавляет выбранный вариант в корзину.
func (a *AddToCart) Submit(ctx context.Context) error {
	a.mu.Lock()
	if !a.phase.Begin() {
		a.mu.Unlock()
		return ErrBusy
	}
	if a.selected < 0 {
		a.phase.Fail(msgAddError)
		a.mu.Unlock()
		return domain.ValidationErrorf("no variant selected")
	}
	variantID, quantity := a.variants[a.selected].ID, a.quantity
	a.mu.Unlock()

	_, err := a.cart.AddItem(ctx, variantID, quantity)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.phase.Fail(msgAddError)
		return err
	}
	a.phase.Succeed(msgAdded)
	return nil
}

func (a *AddToCart) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

func (a *AddToCart) pathFor(v domain.Variant) string {
	if v.Metadata.Handle == "" {
		return a.basePath
	}
	return a.basePath + "/" + v.Metadata.Handle
}

// VariantOption — строка списка вариантов.
type VariantOption struct {
	ID       string
	Label    string
	Title    string
	Price    string
	Path     string
	Selected bool
}

type AddToCartView struct {
	Options     []VariantOption
	Title       string
	Price       string
	Quantity    int
	Disabled    bool
	ButtonLabel string
	Success     string
	Error       string
}

func (a *AddToCart) View() AddToCartView {
	a.mu.Lock()
	defer a.mu.Unlock()

	view := AddToCartView{
		Quantity:    a.quantity,
		Disabled:    a.phase.Disabled() || a.selected < 0,
		ButtonLabel: "Add to Cart",
		Success:     a.phase.SuccessMessage,
		Error:       a.phase.ErrorMessage,
	}
	if a.phase.Disabled() {
		view.ButtonLabel = "Adding..."
	}
	for i, v := range a.variants {
		price := ""
		if p, ok := v.PriceIn(a.currency); ok {
			price = domain.FormatMoney(p.Amount, p.CurrencyCode)
		}
		opt := VariantOption{
			ID:       v.ID,
			Label:    v.Title + " - " + price,
			Title:    v.Title,
			Price:    price,
			Path:     a.pathFor(v),
			Selected: i == a.selected,
		}
		if opt.Selected {
			view.Title, view.Price = opt.Title, opt.Price
		}
		view.Options = append(view.Options, opt)
	}
	return view
}
