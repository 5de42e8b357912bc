package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// CartService — сверка ссылки на корзину с бэкендом и мутации корзины.
//
// Ссылка хранится в хранилище покупателя и проверяется обратным чтением перед
// добавлением товара. NotFound на уровне корзины очищает ссылку; прочие ошибки
// возвращаются вызывающему без изменений. Автоповторов нет.
//
// Блокировок вокруг ссылки нет: два параллельных запроса, обнаружившие
// недействительную ссылку, создадут две корзины, одна останется сиротой.
type CartService struct {
	Client domain.CommerceClient
	Ref    CartReference
	Bus    domain.ChangeBus
	Logger *zap.Logger
}

func NewCartService(client domain.CommerceClient, store domain.KeyValueStore, bus domain.ChangeBus, logger *zap.Logger) *CartService {
	return &CartService{
		Client: client,
		Ref:    CartReference{Store: store},
		Bus:    bus,
		Logger: logger,
	}
}

// EnsureCart возвращает ссылку на корзину, действительную на момент возврата.
func (s *CartService) EnsureCart(ctx context.Context) (string, error) {
	cartID, ok, err := s.Ref.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load cart reference: %w", err)
	}

	if ok {
		cart, err := s.Client.RetrieveCart(ctx, cartID)
		switch {
		case err == nil && cart.ID == cartID:
			return cartID, nil
		case err == nil:
			s.Logger.Warn("cart reference mismatch", zap.String("stored", cartID), zap.String("remote", cart.ID))
		case errors.Is(err, domain.ErrNotFound):
			s.Logger.Info("stored cart not found", zap.String("cart_id", cartID))
		default:
			return "", err
		}
		if err := s.Ref.Clear(ctx); err != nil {
			return "", fmt.Errorf("clear cart reference: %w", err)
		}
	}

	cart, err := s.Client.CreateCart(ctx)
	if err != nil {
		return "", err
	}
	if err := s.Ref.Save(ctx, cart.ID); err != nil {
		return "", fmt.Errorf("save cart reference: %w", err)
	}
	s.Logger.Info("cart created", zap.String("cart_id", cart.ID))
	return cart.ID, nil
}

// AddItem добавляет позицию в корзину покупателя, при необходимости создавая её.
// Не идемпотентна: повторный вызов добавит ещё одну позицию.
func (s *CartService) AddItem(ctx context.Context, variantID string, quantity int) (domain.CartSnapshot, error) {
	if variantID == "" {
		return domain.CartSnapshot{}, domain.ValidationErrorf("variant id is required")
	}
	if quantity < 1 {
		return domain.CartSnapshot{}, domain.ValidationErrorf("quantity must be at least 1, got %d", quantity)
	}

	cartID, err := s.EnsureCart(ctx)
	if err != nil {
		return domain.CartSnapshot{}, err
	}

	cart, err := s.Client.AddLineItem(ctx, cartID, variantID, quantity)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.invalidate(ctx, cartID)
			return domain.CartSnapshot{}, fmt.Errorf("%w: %w", domain.ErrCartExpired, err)
		}
		return domain.CartSnapshot{}, err
	}

	s.Logger.Info("item added",
		zap.String("cart_id", cartID),
		zap.String("variant_id", variantID),
		zap.Int("quantity", quantity),
	)
	s.Bus.Publish(ctx)
	return cart, nil
}

// UpdateQuantity меняет количество позиции. quantity < 1 отклоняется без запроса.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, lineItemID string, quantity int) (domain.CartSnapshot, error) {
	if quantity < 1 {
		return domain.CartSnapshot{}, domain.ValidationErrorf("quantity must be at least 1, got %d", quantity)
	}
	if cartID == "" || lineItemID == "" {
		return domain.CartSnapshot{}, domain.ValidationErrorf("cart id and line item id are required")
	}

	cart, err := s.Client.UpdateLineItem(ctx, cartID, lineItemID, quantity)
	if err != nil {
		return domain.CartSnapshot{}, s.mutationFailed(ctx, cartID, err)
	}

	s.Logger.Info("quantity updated",
		zap.String("cart_id", cartID),
		zap.String("line_item_id", lineItemID),
		zap.Int("quantity", quantity),
	)
	s.Bus.Publish(ctx)
	return cart, nil
}

// RemoveItem удаляет позицию из корзины.
func (s *CartService) RemoveItem(ctx context.Context, cartID, lineItemID string) (domain.CartSnapshot, error) {
	if cartID == "" || lineItemID == "" {
		return domain.CartSnapshot{}, domain.ValidationErrorf("cart id and line item id are required")
	}

	cart, err := s.Client.DeleteLineItem(ctx, cartID, lineItemID)
	if err != nil {
		return domain.CartSnapshot{}, s.mutationFailed(ctx, cartID, err)
	}

	s.Logger.Info("item removed", zap.String("cart_id", cartID), zap.String("line_item_id", lineItemID))
	s.Bus.Publish(ctx)
	return cart, nil
}

// CurrentCart читает корзину по сохранённой ссылке, не создавая новую.
// nil без ошибки — активной корзины нет.
func (s *CartService) CurrentCart(ctx context.Context) (*domain.CartSnapshot, error) {
	cartID, ok, err := s.Ref.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart reference: %w", err)
	}
	if !ok {
		return nil, nil
	}

	cart, err := s.Client.RetrieveCart(ctx, cartID)
	if errors.Is(err, domain.ErrNotFound) {
		s.invalidate(ctx, cartID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *CartService) mutationFailed(ctx context.Context, cartID string, err error) error {
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	// 404 не различает корзину и позицию, поэтому корзина перечитывается.
	cart, rerr := s.Client.RetrieveCart(ctx, cartID)
	switch {
	case rerr == nil && cart.ID == cartID:
		s.Logger.Info("line item not found in live cart", zap.String("cart_id", cartID))
		return err
	case rerr == nil, errors.Is(rerr, domain.ErrNotFound):
		s.invalidate(ctx, cartID)
		return fmt.Errorf("%w: %w", domain.ErrCartExpired, err)
	default:
		s.Logger.Warn("cart read-back failed", zap.String("cart_id", cartID), zap.Error(rerr))
		return err
	}
}

// invalidate очищает ссылку, только если она всё ещё указывает на cartID.
func (s *CartService) invalidate(ctx context.Context, cartID string) {
	stored, ok, err := s.Ref.Load(ctx)
	if err != nil {
		s.Logger.Error("load cart reference", zap.Error(err))
		return
	}
	if !ok || stored != cartID {
		return
	}
	if err := s.Ref.Clear(ctx); err != nil {
		s.Logger.Error("clear cart reference", zap.String("cart_id", cartID), zap.Error(err))
		return
	}
	s.Logger.Info("cart reference cleared", zap.String("cart_id", cartID))
}
