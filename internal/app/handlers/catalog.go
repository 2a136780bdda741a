package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/storefront/internal/lib/api/response"
	"github.com/linemk/storefront/internal/service"
)

// ListProductsHandler обрабатывает GET /api/products?category=&featured=&bestseller=&new=&page=&limit=
func ListProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		query, errs := parseProductQuery(r)
		if len(errs) > 0 {
			response.Error(w, http.StatusBadRequest, "validation error", errs)
			return
		}

		page, err := catalogService.ListProducts(r.Context(), query)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "products retrieved", ProductPageResponse{
			Products: toProductResponses(page.Products),
			Pagination: Pagination{
				Page:  page.Page,
				Limit: page.Limit,
				Total: page.Total,
				Pages: page.Pages,
			},
		})
	}
}

// SearchProductsHandler обрабатывает GET /api/products/search?q=
func SearchProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SearchProductsHandler"
		logger := log.With(slog.String("op", op))

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "validation error", map[string]string{"limit": "must be an integer"})
				return
			}
			limit = n
		}

		products, err := catalogService.SearchProducts(r.Context(), r.URL.Query().Get("q"), limit)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "search results", toProductResponses(products))
	}
}

// GetProductHandler обрабатывает GET /api/products/{id}
func GetProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}

		product, err := catalogService.GetProduct(r.Context(), id)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "product retrieved", toProductResponse(product))
	}
}

// ListCategoriesHandler обрабатывает GET /api/categories
func ListCategoriesHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListCategoriesHandler"
		logger := log.With(slog.String("op", op))

		categories, err := catalogService.ListCategories(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		response.OK(w, http.StatusOK, "categories retrieved", categories)
	}
}

func parseProductQuery(r *http.Request) (service.ProductQuery, map[string]string) {
	q := r.URL.Query()
	var (
		query service.ProductQuery
		errs  = map[string]string{}
	)

	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			errs["category"] = "must be a positive integer"
		} else {
			query.CategoryID = &id
		}
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"featured", &query.Featured},
		{"bestseller", &query.Bestseller},
		{"new", &query.New},
	}
	for _, f := range flags {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs[f.name] = "must be a boolean"
			continue
		}
		*f.dst = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"page", &query.Page},
		{"limit", &query.Limit},
	}
	for _, f := range ints {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs[f.name] = "must be an integer"
			continue
		}
		*f.dst = v
	}

	return query, errs
}
