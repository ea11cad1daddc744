package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tesla-marketplace/internal/catalog"
)

// CatalogHandler proxies the external vehicle catalog for the browse
// experience.  It is read only; catalog data never enters the listings
// table.
type CatalogHandler struct {
    Catalog *catalog.Client
}

func NewCatalogHandler(c *catalog.Client) *CatalogHandler {
    return &CatalogHandler{Catalog: c}
}

// Search queries the catalog with optional filters (public, cacheable).
func (h *CatalogHandler) Search(c echo.Context) error {
    p := catalog.SearchParams{
        Zip:        c.QueryParam("zip"),
        MinYear:    qInt(c, "year_min"),
        MaxYear:    qInt(c, "year_max"),
        MinPrice:   int64(qInt(c, "price_min")),
        MaxPrice:   int64(qInt(c, "price_max")),
        MaxMileage: qInt(c, "mileage_max"),
        Page:       qInt(c, "page"),
        Limit:      qInt(c, "limit"),
    }
    vehicles, err := h.Catalog.Search(c.Request().Context(), p)
    if err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "catalog unavailable"})
    }
    return c.JSON(http.StatusOK, echo.Map{"vehicles": vehicles})
}

// Vehicle fetches one catalog entry by ID (public).
func (h *CatalogHandler) Vehicle(c echo.Context) error {
    v, err := h.Catalog.VehicleByID(c.Request().Context(), c.Param("id"))
    if err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "catalog unavailable"})
    }
    return c.JSON(http.StatusOK, v)
}

func qInt(c echo.Context, name string) int {
    if s := c.QueryParam(name); s != "" {
        if n, err := strconv.Atoi(s); err == nil && n >= 0 {
            return n
        }
    }
    return 0
}
