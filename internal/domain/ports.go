package domain

import (
	"context"
	"errors"
	"fmt"
)

// CommerceClient — порт удалённого коммерческого бэкенда.
type CommerceClient interface {
	CreateCart(ctx context.Context) (CartSnapshot, error)
	RetrieveCart(ctx context.Context, cartID string) (CartSnapshot, error)
	AddLineItem(ctx context.Context, cartID, variantID string, quantity int) (CartSnapshot, error)
	UpdateLineItem(ctx context.Context, cartID, lineItemID string, quantity int) (CartSnapshot, error)
	DeleteLineItem(ctx context.Context, cartID, lineItemID string) (CartSnapshot, error)
	ListProducts(ctx context.Context) ([]Product, error)
	RetrieveProduct(ctx context.Context, productID string) (Product, error)
	ListRegions(ctx context.Context) ([]Region, error)
}

// KeyValueStore — порт долговременного хранилища покупателя (аналог localStorage).
type KeyValueStore interface {
	// Get возвращает ok=false, если ключ отсутствует.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ChangeHandler вызывается синхронно на каждый Publish.
type ChangeHandler func(ctx context.Context)

// ChangeBus — шина уведомлений "корзина изменилась", без полезной нагрузки.
type ChangeBus interface {
	Publish(ctx context.Context)
	// Subscribe возвращает функцию отписки.
	Subscribe(h ChangeHandler) (unsubscribe func())
}

// SignalRelay — порт пересылки сигналов между экземплярами сервиса.
type SignalRelay interface {
	Forward(ctx context.Context, sessionID string) error
	Subscribe(ctx context.Context, deliver func(ctx context.Context, sessionID string)) error
}

// Общие доменные ошибки
var (
	ErrNotFound   = notFoundError("not found")
	ErrValidation = validationError("invalid data")
	ErrNetwork    = networkError("network error")
	ErrServer     = serverError("server error")

	// ErrCartExpired — корзина удалена на сервере между проверкой и мутацией.
	// Ссылка уже очищена, повтор действия создаст новую корзину.
	ErrCartExpired error = &retryableError{msg: "cart no longer exists", err: ErrNotFound}
)

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

type validationError string

func (e validationError) Error() string { return string(e) }

type networkError string

func (e networkError) Error() string { return string(e) }

type serverError string

func (e serverError) Error() string { return string(e) }

type retryableError struct {
	msg string
	err error
}

func (e *retryableError) Error() string { return e.msg }
func (e *retryableError) Unwrap() error { return e.err }

// IsRetryable сообщает, может ли повтор того же действия пройти успешно.
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// RemoteError — отказ удалённого вызова. Kind — одна из ErrNotFound, ErrNetwork, ErrServer.
type RemoteError struct {
	Op     string
	Kind   error
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ValidationErrorf — клиентская ошибка валидации, запрос не отправляется.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
