package controllers

import (
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	productsvc "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ProductList serves the public catalog with filters, sorting and paging.
func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}

		input, err := parseProductListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ProductDetail(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "product")
			return
		}

		product, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func parseProductListQuery(r *http.Request) (productsvc.ListProductsInput, error) {
	var input productsvc.ListProductsInput
	q := r.URL.Query()

	page, err := validators.ParseQueryInt(r, "page", 1, 1, math.MaxInt32)
	if err != nil {
		return input, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", productsvc.DefaultListLimit, 1, math.MaxInt32)
	if err != nil {
		return input, err
	}
	input.Page = page
	input.Limit = limit
	input.Sort = strings.TrimSpace(q.Get("sort"))
	input.Filters.Search = validators.SanitizeString(q.Get("search"), 0)

	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		category, err := enums.ParseProductCategory(raw)
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "Invalid category")
		}
		input.Filters.Category = &category
	}
	if raw := strings.TrimSpace(q.Get("size")); raw != "" {
		size, err := enums.ParseProductSize(strings.ToUpper(raw))
		if err != nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, "Invalid size")
		}
		input.Filters.Size = &size
	}

	if input.Filters.MinPrice, err = validators.ParseQueryDecimal(r, "minPrice"); err != nil {
		return input, err
	}
	if input.Filters.MaxPrice, err = validators.ParseQueryDecimal(r, "maxPrice"); err != nil {
		return input, err
	}
	if input.Filters.InStock, err = validators.ParseQueryBool(r, "inStock"); err != nil {
		return input, err
	}
	return input, nil
}
