package controllers

import (
	"math"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	ordersvc "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const addressFieldMaxLen = 200

type createOrderRequest struct {
	ShippingAddress *types.ShippingAddress `json:"shippingAddress,omitempty"`
	PaymentMethod   string                 `json:"paymentMethod,omitempty"`
}

func (r createOrderRequest) toInput() checkout.CreateOrderInput {
	input := checkout.CreateOrderInput{
		PaymentMethod: enums.PaymentMethod(strings.TrimSpace(r.PaymentMethod)),
	}
	if addr := r.ShippingAddress; addr != nil {
		input.ShippingAddress = &types.ShippingAddress{
			Street:  validators.SanitizeString(addr.Street, addressFieldMaxLen),
			City:    validators.SanitizeString(addr.City, addressFieldMaxLen),
			State:   validators.SanitizeString(addr.State, addressFieldMaxLen),
			ZipCode: validators.SanitizeString(addr.ZipCode, addressFieldMaxLen),
			Country: validators.SanitizeString(addr.Country, addressFieldMaxLen),
		}
	}
	return input
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderCreate checks out the caller's cart (201).
func OrderCreate(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "checkout")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), userID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func OrderListMine(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", ordersvc.DefaultListLimit, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := ordersvc.ListInput{Page: page, Limit: limit}
		// an unrecognised status filter lists every order
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			if status, err := enums.ParseOrderStatus(strings.ToUpper(raw)); err == nil {
				input.Filters.Status = &status
			}
		}

		result, err := svc.ListForUser(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		orderID, err := pathUUID(r, "id", "Invalid order ID format")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderUpdateStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		orderID, err := pathUUID(r, "id", "Invalid order ID format")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrderStatusRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(body.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), userID, orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
