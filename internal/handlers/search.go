package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/labstack/echo/v4"

	"github.com/useandsell/marketplace/internal/logging"
	"github.com/useandsell/marketplace/internal/service/search"
	"github.com/useandsell/marketplace/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing query")
	}
	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Search is not configured")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, prods, err := search.Search(c.Request().Context(), h.ES, h.Index, q, from, limit)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("search_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search products")
	}

	return respondData(c, http.StatusOK, echo.Map{
		"total":    total,
		"products": displayProducts(c, prods),
	})
}
