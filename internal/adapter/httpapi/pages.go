package httpapi

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
	"github.com/example/storefront/internal/logger"
	"github.com/example/storefront/internal/session"
	"github.com/example/storefront/internal/ui"
)

// resolveRegion определяет регион по пути. Если путь без известного региона,
// отвечает редиректом на путь с регионом по умолчанию и возвращает ok=false.
func (s *Server) resolveRegion(w http.ResponseWriter, r *http.Request) (*ui.RegionSelector, bool) {
	rs, replace, err := ui.LoadRegionSelector(r.Context(), s.regions, r.URL.Path)
	if err != nil {
		s.pageError(w, r, err)
		return nil, false
	}
	if rs.Current() == "" {
		http.Error(w, "no regions configured", http.StatusServiceUnavailable)
		return nil, false
	}
	if replace != "" {
		http.Redirect(w, r, replace, http.StatusFound)
		return nil, false
	}
	return rs, true
}

func (s *Server) header(ctx context.Context, sess *session.Session, rs *ui.RegionSelector, path string) ui.Header {
	if err := sess.Icon.Refresh(ctx); err != nil {
		logger.FromContext(ctx).Warn("cart icon refresh", zap.Error(err))
	}
	return ui.Header{
		Regions: rs.View(),
		Icon:    sess.Icon.View(cartPath(rs.Current())),
		Path:    path,
	}
}

func cartPath(region string) string { return "/" + region + "/cart" }

func productPath(region, productID string) string {
	return "/" + region + "/products/" + productID
}

// handleUnrouted добавляет регион к путям без него, остальное — 404.
func (s *Server) handleUnrouted(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if _, ok := s.resolveRegion(w, r); ok {
		http.NotFound(w, r)
	}
}

// handleRegionHome: каталога нет, главная региона ведёт в корзину.
func (s *Server) handleRegionHome(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.resolveRegion(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, cartPath(rs.Current()), http.StatusFound)
}

func (s *Server) handleProductPage(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.resolveRegion(w, r)
	if !ok {
		return
	}
	sess := s.session(r)
	vars := mux.Vars(r)

	product, err := s.UCProduct.Execute(r.Context(), vars["id"])
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	a := s.addToCart(sess, rs, product, vars["handle"])
	s.renderProduct(w, r, sess, rs, product, a, http.StatusOK)
}

func (s *Server) addToCart(sess *session.Session, rs *ui.RegionSelector, p domain.Product, handle string) *ui.AddToCart {
	currency := domain.DefaultCurrency
	if region, ok := rs.CurrentRegion(); ok {
		currency = region.CurrencyCode
	}
	return ui.NewAddToCart(sess.Cart, p.Variants, handle, productPath(rs.Current(), p.ID), currency)
}

func (s *Server) renderProduct(w http.ResponseWriter, r *http.Request, sess *session.Session, rs *ui.RegionSelector, p domain.Product, a *ui.AddToCart, status int) {
	path, _ := a.SelectedPath()
	page := ui.ProductPage{
		Header:     s.header(r.Context(), sess, rs, path),
		Product:    p,
		AddToCart:  a.View(),
		FormAction: cartPath(rs.Current()) + "/items",
	}
	s.render(w, r, status, func(buf *bytes.Buffer) error { return ui.RenderProductPage(buf, page) })
}

// handleAddItemForm — форма добавления со страницы товара. Страница
// перерисовывается сразу, чтобы показать сообщение виджета.
func (s *Server) handleAddItemForm(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.resolveRegion(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.pageError(w, r, domain.ValidationErrorf("invalid form: %v", err))
		return
	}
	sess := s.session(r)

	product, err := s.UCProduct.Execute(r.Context(), r.PostForm.Get("product_id"))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	a := s.addToCart(sess, rs, product, "")
	if _, ok := a.SelectVariant(r.PostForm.Get("variant_id")); !ok {
		s.pageError(w, r, domain.ValidationErrorf("unknown variant %q", r.PostForm.Get("variant_id")))
		return
	}
	// нечисловое количество считается единицей, как в поле ввода
	q, _ := strconv.Atoi(r.PostForm.Get("quantity"))
	a.SetQuantity(q)

	status := http.StatusOK
	if err := a.Submit(r.Context()); err != nil {
		status = statusFor(err)
		logger.FromContext(r.Context()).Warn("add to cart failed", zap.Error(err))
	}
	s.renderProduct(w, r, sess, rs, product, a, status)
}

func (s *Server) handleCartPage(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.resolveRegion(w, r)
	if !ok {
		return
	}
	sess := s.session(r)
	// при ошибке показывается последний известный снимок
	_ = sess.Listing.Refresh(r.Context())
	s.renderCart(w, r, sess, rs, http.StatusOK)
}

func (s *Server) renderCart(w http.ResponseWriter, r *http.Request, sess *session.Session, rs *ui.RegionSelector, status int) {
	base := cartPath(rs.Current())
	page := ui.CartPage{
		Header:       s.header(r.Context(), sess, rs, base),
		Listing:      sess.Listing.View(),
		ItemsPath:    base + "/items",
		CheckoutPath: base + "/checkout",
	}
	s.render(w, r, status, func(buf *bytes.Buffer) error { return ui.RenderCartPage(buf, page) })
}

func (s *Server) handleQuantityForm(w http.ResponseWriter, r *http.Request) {
	s.lineItemForm(w, r, func(ctx context.Context, l *ui.CartListing, line string) error {
		// кнопки +/- передают set, поле ввода — quantity
		raw := r.PostForm.Get("set")
		if raw == "" {
			raw = r.PostForm.Get("quantity")
		}
		q, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return domain.ValidationErrorf("quantity must be a number")
		}
		return l.UpdateQuantity(ctx, line, q)
	})
}

func (s *Server) handleRemoveForm(w http.ResponseWriter, r *http.Request) {
	s.lineItemForm(w, r, func(ctx context.Context, l *ui.CartListing, line string) error {
		return l.Remove(ctx, line)
	})
}

// lineItemForm выполняет действие над позицией через список корзины сессии.
// При успехе редирект на корзину, при ошибке страница корзины с сообщением у позиции.
func (s *Server) lineItemForm(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, l *ui.CartListing, line string) error) {
	rs, ok := s.resolveRegion(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.pageError(w, r, domain.ValidationErrorf("invalid form: %v", err))
		return
	}
	sess := s.session(r)
	line := mux.Vars(r)["line"]

	err := action(r.Context(), sess.Listing, line)
	if errors.Is(err, ui.ErrUnknownLineItem) {
		// список мог устареть или ещё не загружаться в этой сессии
		if rerr := sess.Listing.Refresh(r.Context()); rerr != nil {
			s.pageError(w, r, rerr)
			return
		}
		err = action(r.Context(), sess.Listing, line)
	}
	if err != nil {
		logger.FromContext(r.Context()).Warn("line item action failed", zap.String("line_item_id", line), zap.Error(err))
		s.renderCart(w, r, sess, rs, statusFor(err))
		return
	}
	http.Redirect(w, r, cartPath(rs.Current()), http.StatusSeeOther)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	rs, ok := s.resolveRegion(w, r)
	if !ok {
		return
	}
	s.session(r).Listing.Checkout()
	http.Redirect(w, r, cartPath(rs.Current()), http.StatusSeeOther)
}

// handleChangeRegion — форма выбора региона: переход на тот же путь в другом регионе.
func (s *Server) handleChangeRegion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.pageError(w, r, domain.ValidationErrorf("invalid form: %v", err))
		return
	}
	path := localPath(r.PostForm.Get("path"))
	rs, _, err := ui.LoadRegionSelector(r.Context(), s.regions, path)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	target, err := rs.Change(r.PostForm.Get("code"), path)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// localPath не даёт форме увести покупателя на другой хост.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return "/"
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, fn func(buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		logger.FromContext(r.Context()).Error("render page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		logger.FromContext(r.Context()).Error("page failed", zap.Error(err))
	}
	msg := http.StatusText(status)
	if status < 500 || status == http.StatusBadGateway {
		msg = err.Error()
	}
	http.Error(w, msg, status)
}
