package rest

import (
	"errors"
	"fmt"
	"net/http"

	bookingerrors "github.com/abgdnv/lessonbooking/internal/booking/errors"
	"github.com/abgdnv/lessonbooking/internal/booking/service"
	"github.com/abgdnv/lessonbooking/internal/booking/store"
	"github.com/abgdnv/lessonbooking/pkg/web"
)

const invalidOrderMessage = "Invalid order payload"

// PlaceOrder validates and stores a new order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	id, err := h.service.PlaceOrder(r.Context(), order)
	switch {
	case errors.Is(err, bookingerrors.ErrUnknownLesson):
		h.logger.WarnContext(r.Context(), "Order references an unknown lesson", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, bookingerrors.ErrInsufficientSpaces):
		h.logger.WarnContext(r.Context(), "Not enough spaces for order", "error", err)
		web.RespondError(w, h.logger, http.StatusConflict, err.Error())
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Error placing order", "error", err)
		web.RespondInternalError(w, h.logger)
	default:
		h.logger.InfoContext(r.Context(), "Order placed successfully", "ID", id.Hex(), "kind", order.Kind())
		web.RespondJSON(w, h.logger, http.StatusCreated, map[string]string{"insertedId": id.Hex()})
	}
}

// ReplaceOrder overwrites an order. Every field must be supplied again.
func (h *Handler) ReplaceOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger, store.ParseID)
	if !ok {
		return
	}
	order, ok := h.decodeOrder(w, r)
	if !ok {
		return
	}

	err := h.service.ReplaceOrder(r.Context(), id, order)
	switch {
	case errors.Is(err, bookingerrors.ErrDocumentNotFound):
		h.logger.WarnContext(r.Context(), "Order not found for update", "ID", id.Hex())
		web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found", id.Hex()))
	case err != nil:
		h.logger.ErrorContext(r.Context(), "Error updating order", "ID", id.Hex(), "error", err)
		web.RespondInternalError(w, h.logger)
	default:
		h.logger.InfoContext(r.Context(), "Order updated successfully", "ID", id.Hex())
		web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Order updated successfully"})
	}
}

func (h *Handler) decodeOrder(w http.ResponseWriter, r *http.Request) (service.OrderDto, bool) {
	var order service.OrderDto
	body, err := web.DecodeJSONObject(r, &order)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding order", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, invalidOrderMessage)
		return order, false
	}
	if err := h.validate.Struct(order); err != nil {
		h.respondValidationError(w, r, invalidOrderMessage, body, err)
		return order, false
	}
	return order, true
}
