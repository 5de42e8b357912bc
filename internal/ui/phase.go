// Package ui содержит виджеты витрины: состояние между рендерами и их шаблоны.
package ui

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/domain"
)

// Status — состояние виджета.
type Status int

const (
	Idle Status = iota
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// ErrBusy — действие отклонено: управляющий элемент заблокирован текущим запросом.
var ErrBusy = errors.New("action already in progress")

// Phase — машина состояний Idle -> Loading -> {Success, Error}.
// Не потокобезопасна, владелец виджета держит свой мьютекс.
type Phase struct {
	Status         Status
	SuccessMessage string
	ErrorMessage   string
}

// Begin переводит в Loading и очищает сообщения. false — уже Loading.
func (p *Phase) Begin() bool {
	if p.Status == Loading {
		return false
	}
	p.Status = Loading
	p.SuccessMessage = ""
	p.ErrorMessage = ""
	return true
}

func (p *Phase) Succeed(msg string) {
	p.Status = Success
	p.SuccessMessage = msg
}

func (p *Phase) Fail(msg string) {
	p.Status = Error
	p.ErrorMessage = msg
}

// Reset возвращает в Idle и сбрасывает сообщения.
func (p *Phase) Reset() { *p = Phase{} }

// Disabled — управляющий элемент заблокирован.
func (p Phase) Disabled() bool { return p.Status == Loading }

// CartActions — операции корзины, доступные виджетам.
type CartActions interface {
	AddItem(ctx context.Context, variantID string, quantity int) (domain.CartSnapshot, error)
	UpdateQuantity(ctx context.Context, cartID, lineItemID string, quantity int) (domain.CartSnapshot, error)
	RemoveItem(ctx context.Context, cartID, lineItemID string) (domain.CartSnapshot, error)
	CurrentCart(ctx context.Context) (*domain.CartSnapshot, error)
}
