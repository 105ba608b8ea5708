package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/useandsell/marketplace/internal/forms"
	"github.com/useandsell/marketplace/internal/images"
	"github.com/useandsell/marketplace/internal/logging"
	"github.com/useandsell/marketplace/internal/middleware/auth"
	"github.com/useandsell/marketplace/internal/models"
	"github.com/useandsell/marketplace/internal/mykafka"
	"github.com/useandsell/marketplace/internal/service/search"
	"github.com/useandsell/marketplace/internal/storage"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Store    storage.Store
	Uploads  *storage.Disk
	Cloud    *storage.Cloudinary
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	form, files, err := parseProductForm(c)
	if err != nil {
		return err
	}

	uploaded, err := h.uploadFiles(c, files)
	if err != nil {
		return err
	}

	imgs := images.Merge(nil, form.ImageURLs.Strings(), uploaded)

	prod := buildProduct(form, imgs, "available")
	if id, ok := auth.FromContext(c); ok {
		prod.UserID = &id.ID
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("create_product_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create product")
	}

	h.publish(c, map[string]any{"type": "product_created", "productID": prod.ID, "title": prod.Title})
	h.index(c, &prod)

	return respondData(c, http.StatusCreated, prod)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	var prods []models.Product
	if err := h.DB.Order("created_at DESC").Find(&prods).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("list_products_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch products")
	}
	return respondData(c, http.StatusOK, displayProducts(c, prods))
}

func (h *ProductHandler) GetMyProducts(c echo.Context) error {
	id, ok := auth.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}

	var prods []models.Product
	if err := h.DB.Where("user_id = ?", id.ID).Order("created_at DESC").Find(&prods).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("list_my_products_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch user products")
	}
	return respondData(c, http.StatusOK, displayProducts(c, prods))
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
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

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
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

	if err := checkOwnership(c, &prod); err != nil {
		return err
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
		logging.FromContext(c.Request().Context()).Error("update_product_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update product")
	}

	h.publish(c, map[string]any{"type": "product_updated", "productID": prod.ID, "title": prod.Title})
	h.index(c, &prod)

	return respondData(c, http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
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

	if err := checkOwnership(c, &prod); err != nil {
		return err
	}

	if err := h.DB.Delete(&prod).Error; err != nil {
		logging.FromContext(c.Request().Context()).Error("delete_product_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete product")
	}

	h.cleanupLocalFiles(c, prod.Images)
	h.publish(c, map[string]any{"type": "product_deleted", "productID": prod.ID})
	h.deindex(c, prod.ID)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product deleted successfully"})
}

func (h *ProductHandler) CloudinaryConfig(c echo.Context) error {
	cloudName := ""
	if h.Cloud != nil {
		cloudName = h.Cloud.CloudName
	}
	return respondData(c, http.StatusOK, echo.Map{
		"cloudName":    cloudName,
		"uploadPreset": "unsigned_uploads",
	})
}

// checkOwnership enforces the ownership-optional model: an unowned product may
// be modified or deleted by anyone, an owned one only by its owner.
func checkOwnership(c echo.Context, prod *models.Product) error {
	if prod.UserID == nil {
		return nil
	}
	id, ok := auth.FromContext(c)
	if !ok || id.ID != *prod.UserID {
		return echo.NewHTTPError(http.StatusForbidden, "Not allowed")
	}
	return nil
}

func (h *ProductHandler) uploadFiles(c echo.Context, files []*multipart.FileHeader) ([]string, error) {
	return uploadAll(c, h.Store, files)
}

func uploadAll(c echo.Context, store storage.Store, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if store == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload images")
	}
	refs, err := store.UploadAll(c.Request().Context(), files)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("upload_failed", "error", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload images")
	}
	return refs, nil
}

// cleanupLocalFiles removes locally stored image files after a product record
// is gone. A missing file or filesystem error is logged and swallowed: record
// deletion never fails because of an orphaned file.
func (h *ProductHandler) cleanupLocalFiles(c echo.Context, refs []string) {
	if h.Uploads == nil {
		return
	}
	l := logging.FromContext(c.Request().Context())
	for _, ref := range refs {
		if _, ok := images.LocalFilename(ref); !ok {
			continue
		}
		if err := h.Uploads.Remove(ref); err != nil {
			l.Warn("could_not_remove_file", "ref", ref, "error", err)
			continue
		}
		l.Info("removed_file", "ref", ref)
	}
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	publishProductEvent(c, h.Producer, event)
}

func (h *ProductHandler) index(c echo.Context, prod *models.Product) {
	indexProduct(c, h.ES, prod)
}

func (h *ProductHandler) deindex(c echo.Context, id uint) {
	deindexProduct(c, h.ES, id)
}

func buildProduct(f *productForm, imgs []string, defaultStatus string) models.Product {
	title, _ := f.Title.First()
	category, _ := f.Category.First()
	description, _ := f.Description.First()
	location, _ := f.Location.First()
	contactName, _ := f.ContactName.First()
	contactPhone, _ := f.ContactPhone.First()

	return models.Product{
		Title:        title,
		Category:     category,
		MobileBrand:  forms.Nullable(f.MobileBrand),
		PtaStatus:    forms.Nullable(f.PtaStatus),
		Condition:    forms.Nullable(f.Condition),
		Description:  description,
		Price:        forms.Price(f.Price),
		Location:     location,
		ContactName:  contactName,
		ContactPhone: contactPhone,
		Status:       forms.Status(f.Status, defaultStatus),
		Images:       imgs,
		AcceptTerms:  forms.Bool(f.AcceptTerms),
	}
}

// applyUpdate overwrites a product from an update form. Text fields left out
// of the form stay untouched; nullable, price, status, acceptTerms and images
// are always re-derived, matching the full-update semantics of the original
// API.
func applyUpdate(prod *models.Product, f *productForm, imgs []string) {
	if v, ok := f.Title.First(); ok {
		prod.Title = v
	}
	if v, ok := f.Category.First(); ok {
		prod.Category = v
	}
	if v, ok := f.Description.First(); ok {
		prod.Description = v
	}
	if v, ok := f.Location.First(); ok {
		prod.Location = v
	}
	if v, ok := f.ContactName.First(); ok {
		prod.ContactName = v
	}
	if v, ok := f.ContactPhone.First(); ok {
		prod.ContactPhone = v
	}

	prod.MobileBrand = forms.Nullable(f.MobileBrand)
	prod.PtaStatus = forms.Nullable(f.PtaStatus)
	prod.Condition = forms.Nullable(f.Condition)
	prod.Price = forms.Price(f.Price)
	prod.Status = forms.Status(f.Status, "available")
	prod.AcceptTerms = forms.Bool(f.AcceptTerms)
	prod.Images = imgs
}

func displayProduct(c echo.Context, prod models.Product) models.Product {
	prod.Images = images.RewriteAll(baseURL(c), prod.Images)
	return prod
}

func displayProducts(c echo.Context, prods []models.Product) []models.Product {
	out := make([]models.Product, len(prods))
	for i, p := range prods {
		out[i] = displayProduct(c, p)
	}
	return out
}

func publishProductEvent(c echo.Context, producer *mykafka.Producer, event map[string]any) {
	if producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("kafka_publish_failed", "error", err)
	}
}

func indexProduct(c echo.Context, es *elasticsearch.Client, prod *models.Product) {
	if es == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexProduct(ctx, es, search.Index, prod); err != nil {
		logging.FromContext(c.Request().Context()).Warn("index_product_failed", "error", err)
	}
}

func deindexProduct(c echo.Context, es *elasticsearch.Client, id uint) {
	if es == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.DeleteProduct(ctx, es, search.Index, id); err != nil {
		logging.FromContext(c.Request().Context()).Warn("deindex_product_failed", "error", err)
	}
}
