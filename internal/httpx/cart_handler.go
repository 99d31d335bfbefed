package httpx

import (
	"encoding/json"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/go-chi/chi/v5"
	"net/http"
)

type CartHandler struct {
	Cart *orders.CartStore
}

type addToCartReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *CartHandler) Register(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/", h.add)
		r.Get("/", h.list)
		r.Delete("/", h.clear)
		r.Delete("/{productID}", h.remove)
	})
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	if req.ProductID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing product_id"})
		return
	}
	line, err := h.Cart.AddItem(r.Context(), userID(r), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *CartHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Cart.GetItems(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []orders.CartItemView{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid product id"})
		return
	}
	if err := h.Cart.RemoveItem(r.Context(), userID(r), productID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.Clear(r.Context(), userID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
