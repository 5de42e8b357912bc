package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/session"
)

type addItemRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type cartResponse struct {
	Cart  *domain.CartSnapshot `json:"cart"`
	Count int                  `json:"count"`
	Total string               `json:"total,omitempty"`
}

func newCartResponse(cart *domain.CartSnapshot) cartResponse {
	if cart == nil {
		return cartResponse{}
	}
	return cartResponse{
		Cart:  cart,
		Count: cart.ItemCount(),
		Total: domain.FormatMoney(cart.Total(), cart.Region.CurrencyCode),
	}
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := s.session(r).Cart.CurrentCart(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cart))
}

func (s *Server) handleCartCount(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if err := sess.Icon.Refresh(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": sess.Icon.Count()})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := s.session(r).Cart.AddItem(r.Context(), req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCartResponse(&cart))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := s.decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess := s.session(r)
	cartID, err := activeCartID(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := sess.Cart.UpdateQuantity(r.Context(), cartID, mux.Vars(r)["line"], req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(&cart))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	cartID, err := activeCartID(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := sess.Cart.RemoveItem(r.Context(), cartID, mux.Vars(r)["line"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(&cart))
}

// activeCartID возвращает сохранённую ссылку на корзину без проверки на бэкенде.
func activeCartID(ctx context.Context, sess *session.Session) (string, error) {
	id, ok, err := sess.Cart.Ref.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load cart reference: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: no active cart", domain.ErrNotFound)
	}
	return id, nil
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.UCProducts.Execute(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.UCProduct.Execute(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.UCRegions.Execute(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": regions})
}
