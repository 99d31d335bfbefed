package httpx

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"log/slog"
	"net/http"
	"time"
)

type OrdersHandler struct {
	Service *orders.Service
	Cache   *redisx.StatusCache // optional
	Logger  *slog.Logger
}

type createOrderReq struct {
	ShippingAddress string `json:"shipping_address"`
}

type updateStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Get("/{id}/status", h.getStatus)
		r.Patch("/{id}/cancel", h.cancelOrder)
	})
	// admin authorization sits in front of this service
	r.Patch("/admin/orders/{id}/status", h.updateStatus)
}

func withTrace(r *http.Request) context.Context {
	return orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(withTrace(r), 5*time.Second)
	defer cancel()

	o, err := h.Service.CreateOrder(ctx, userID(r), req.ShippingAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Service.GetUserOrders(ctx, userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid order id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	uid := userID(r)
	o, err := h.Service.GetOrderByID(ctx, id, &uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid order id"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache; ownership tetap dicek ke DB di bawah kalau miss
	uid := userID(r)
	if h.Cache != nil {
		if cs, hit, err := h.Cache.Get(ctx, id); err == nil && hit && cs.UserID == uid {
			writeJSON(w, http.StatusOK, cs)
			return
		}
	}

	// 2) fallback DB
	o, err := h.Service.GetOrderByID(ctx, id, &uid)
	if err != nil {
		writeError(w, err)
		return
	}
	cs := h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, cs)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid order id"})
		return
	}
	ctx, cancel := context.WithTimeout(withTrace(r), 5*time.Second)
	defer cancel()

	o, err := h.Service.CancelOrder(ctx, id, userID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid order id"})
		return
	}
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(withTrace(r), 5*time.Second)
	defer cancel()

	o, err := h.Service.UpdateOrderStatus(ctx, id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order) redisx.CachedStatus {
	cs := redisx.CachedStatus{OrderID: o.ID, UserID: o.UserID, Status: o.Status, UpdatedAt: time.Now().UTC()}
	if h.Cache == nil {
		return cs
	}
	if err := h.Cache.Set(ctx, cs); err != nil && h.Logger != nil {
		h.Logger.WarnContext(ctx, "cache order status", "order_id", o.ID, "err", err)
	}
	return cs
}
