package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/useandsell/marketplace/internal/images"
	"github.com/useandsell/marketplace/internal/logging"
	"github.com/useandsell/marketplace/internal/models"
	"github.com/useandsell/marketplace/internal/mykafka"
	"github.com/useandsell/marketplace/internal/storage"
)

// AdminProductHandler manages the admin product surface. Listings created here
// start in "pending" until reviewed, and deletes remove the record only.
type AdminProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Store    storage.Store
}

func (h *AdminProductHandler) CreateProduct(c echo.Context) error {
	form, files, err := parseProductForm(c)
	if err != nil {
		return err
	}

	uploaded, err := h.uploadFiles(c, files)
	if err != nil {
		return err
	}

	imgs := images.Merge(nil, form.ImageURLs.Strings(), uploaded)

	prod := buildProduct(form, imgs, "pending")

	if err := h.DB.Create(&prod).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("admin_create_product_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create product")
	}

	publishProductEvent(c, h.Producer, map[string]any{"type": "product_created", "productID": prod.ID, "title": prod.Title})
	indexProduct(c, h.ES, &prod)

	return respondData(c, http.StatusCreated, prod)
}

func (h *AdminProductHandler) GetProducts(c echo.Context) error {
	var prods []models.Product
	if err := h.DB.Order("created_at DESC").Find(&prods).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("admin_list_products_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch products")
	}
	return respondData(c, http.StatusOK, displayProducts(c, prods))
}

func (h *AdminProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid product ID")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch product")
	}
	return respondData(c, http.StatusOK, displayProduct(c, prod))
}

func (h *AdminProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid product ID")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update product")
	}

	form, files, err := parseProductForm(c)
	if err != nil {
		return err
	}

	uploaded, err := h.uploadFiles(c, files)
	if err != nil {
		return err
	}

	kept := images.ParseKept(form.ExistingImages)
	imgs := images.Merge(kept, form.ImageURLs.Strings(), uploaded)

	applyUpdate(&prod, form, imgs)

	if err := h.DB.Save(&prod).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("admin_update_product_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update product")
	}

	publishProductEvent(c, h.Producer, map[string]any{"type": "product_updated", "productID": prod.ID, "title": prod.Title})
	indexProduct(c, h.ES, &prod)

	return respondData(c, http.StatusOK, prod)
}

func (h *AdminProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid product ID")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete product")
	}

	if err := h.DB.Delete(&prod).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("admin_delete_product_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete product")
	}

	publishProductEvent(c, h.Producer, map[string]any{"type": "product_deleted", "productID": prod.ID})
	deindexProduct(c, h.ES, prod.ID)

	return respondData(c, http.StatusOK, true)
}

func (h *AdminProductHandler) uploadFiles(c echo.Context, files []*multipart.FileHeader) ([]string, error) {
	return uploadAll(c, h.Store, files)
}
