package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/useandsell/marketplace/internal/models"
)

func seedProduct(t *testing.T, env *testEnv, images []string, userID *uint) models.Product {
	t.Helper()
	prod := models.Product{
		Title:    "iPhone 13",
		Category: "mobiles",
		Price:    1200,
		Status:   "available",
		Images:   images,
		UserID:   userID,
	}
	require.NoError(t, env.DB.Create(&prod).Error)
	return prod
}

func writeUpload(t *testing.T, env *testEnv, name string) {
	t.Helper()
	path := filepath.Join(env.Root, "products", name)
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))
}

func TestCreateProductAnonymous(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/products", map[string]any{
		"title":       "iPhone 13",
		"category":    "mobiles",
		"price":       25000,
		"imageUrls":   []any{"http://cdn.example.com/x.png"},
		"acceptTerms": true,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var prod models.Product
	decodeData(t, rec, &prod)
	require.Nil(t, prod.UserID)
	require.Equal(t, "available", prod.Status)
	require.Equal(t, 25000.0, prod.Price)
	require.True(t, prod.AcceptTerms)
	require.Equal(t, models.StringList{"http://cdn.example.com/x.png"}, prod.Images)
}

func TestCreateProductAttachesIdentity(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "Ali", "ali@example.com", models.RoleUser)

	rec := env.doJSON(t, http.MethodPost, "/products", map[string]any{
		"title":    "Galaxy S22",
		"category": "mobiles",
		"price":    "90000",
	}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var prod models.Product
	decodeData(t, rec, &prod)
	require.NotNil(t, prod.UserID)
	require.Equal(t, user.ID, *prod.UserID)
	require.Equal(t, 90000.0, prod.Price)
}

func TestCreateProductMultipartUpload(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartBody(t, map[string][]string{
		"title":    {"Pixel 8"},
		"category": {"mobiles"},
		"price":    {"150000"},
	}, map[string][]byte{"photo.jpg": []byte("jpeg bytes")})

	rec := env.do(http.MethodPost, "/products", body, ct, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var prod models.Product
	decodeData(t, rec, &prod)
	require.Len(t, prod.Images, 1)
	require.True(t, strings.HasPrefix(prod.Images[0], "/uploads/products/"))
	require.Equal(t, ".jpg", filepath.Ext(prod.Images[0]))

	_, err := os.Stat(filepath.Join(env.Root, "products", filepath.Base(prod.Images[0])))
	require.NoError(t, err)
}

func TestCreateProductTooManyFiles(t *testing.T) {
	env := newTestEnv(t)

	files := make(map[string][]byte)
	for i := 0; i < 13; i++ {
		files[fmt.Sprintf("f%d.jpg", i)] = []byte("x")
	}
	body, ct := multipartBody(t, map[string][]string{"title": {"x"}}, files)

	rec := env.do(http.MethodPost, "/products", body, ct, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Too many files", decode(t, rec).Error)
}

func TestCreateProductNullableFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, http.MethodPost, "/products", map[string]any{
		"title":       "OnePlus 11",
		"category":    "mobiles",
		"mobileBrand": "OnePlus",
		"ptaStatus":   "null",
		"condition":   "",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var prod models.Product
	decodeData(t, rec, &prod)
	require.NotNil(t, prod.MobileBrand)
	require.Equal(t, "OnePlus", *prod.MobileBrand)
	require.Nil(t, prod.PtaStatus)
	require.Nil(t, prod.Condition)
	require.Equal(t, 0.0, prod.Price)
}

func TestGetProductRewritesImages(t *testing.T) {
	env := newTestEnv(t)
	prod := seedProduct(t, env, []string{
		"a.jpg",
		"http://x/y.png",
		"/uploads/old/c.png",
	}, nil)

	rec := env.do(http.MethodGet, fmt.Sprintf("/products/%d", prod.ID), nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	decodeData(t, rec, &got)
	require.Equal(t, models.StringList{
		"http://example.com/uploads/products/a.jpg",
		"http://x/y.png",
		"http://example.com/uploads/products/c.png",
	}, got.Images)

	// stored references stay in canonical form
	var stored models.Product
	require.NoError(t, env.DB.First(&stored, prod.ID).Error)
	require.Equal(t, models.StringList{"a.jpg", "http://x/y.png", "/uploads/old/c.png"}, stored.Images)
}

func TestGetProductErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/products/abc", nil, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid product ID", decode(t, rec).Error)

	rec = env.do(http.MethodGet, "/products/999", nil, "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Product not found", decode(t, rec).Error)
}

func TestListProductsRewritesImages(t *testing.T) {
	env := newTestEnv(t)
	seedProduct(t, env, []string{"a.jpg"}, nil)
	seedProduct(t, env, []string{"b.jpg"}, nil)

	rec := env.do(http.MethodGet, "/products", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Product
	decodeData(t, rec, &got)
	require.Len(t, got, 2)
	for _, p := range got {
		require.Len(t, p.Images, 1)
		require.True(t, strings.HasPrefix(p.Images[0], "http://example.com/uploads/products/"))
	}
}

func TestMyProducts(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "Ali", "ali@example.com", models.RoleUser)
	other, _ := env.createUser(t, "Sara", "sara@example.com", models.RoleUser)

	mine := seedProduct(t, env, nil, &user.ID)
	seedProduct(t, env, nil, &other.ID)
	seedProduct(t, env, nil, nil)

	rec := env.do(http.MethodGet, "/products/me", nil, "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/products/me", nil, "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []models.Product
	decodeData(t, rec, &got)
	require.Len(t, got, 1)
	require.Equal(t, mine.ID, got[0].ID)
}

func TestUpdateProductMergesImageSources(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "Ali", "ali@example.com", models.RoleUser)
	prod := seedProduct(t, env, []string{"old1.jpg", "old2.jpg"}, &user.ID)

	body, ct := multipartBody(t, map[string][]string{
		"existingImages": {`["old1.jpg"]`},
		"imageUrls":      {"http://cdn.example.com/new.png"},
	}, map[string][]byte{"fresh.jpg": []byte("jpeg")})

	rec := env.do(http.MethodPut, fmt.Sprintf("/products/%d", prod.ID), body, ct, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	decodeData(t, rec, &got)
	require.Len(t, got.Images, 3)
	require.Equal(t, "old1.jpg", got.Images[0])
	require.Equal(t, "http://cdn.example.com/new.png", got.Images[1])
	require.True(t, strings.HasPrefix(got.Images[2], "/uploads/products/"))
}

func TestUpdateProductStatusListTakesFirst(t *testing.T) {
	env := newTestEnv(t)
	prod := seedProduct(t, env, nil, nil)

	rec := env.doJSON(t, http.MethodPut, fmt.Sprintf("/products/%d", prod.ID), map[string]any{
		"status": []any{"pending", "active"},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	decodeData(t, rec, &got)
	require.Equal(t, "pending", got.Status)
}

func TestUpdateProductMalformedExistingImages(t *testing.T) {
	env := newTestEnv(t)
	prod := seedProduct(t, env, []string{"old.jpg"}, nil)

	rec := env.doJSON(t, http.MethodPut, fmt.Sprintf("/products/%d", prod.ID), map[string]any{
		"existingImages": "not json",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	decodeData(t, rec, &got)
	require.Empty(t, got.Images)
}

func TestUpdateProductOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.createUser(t, "Owner", "owner@example.com", models.RoleUser)
	_, otherToken := env.createUser(t, "Other", "other@example.com", models.RoleUser)
	prod := seedProduct(t, env, nil, &owner.ID)

	rec := env.doJSON(t, http.MethodPut, fmt.Sprintf("/products/%d", prod.ID), map[string]any{"title": "x"}, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "Not allowed", decode(t, rec).Error)

	rec = env.doJSON(t, http.MethodPut, fmt.Sprintf("/products/%d", prod.ID), map[string]any{"title": "x"}, otherToken)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.doJSON(t, http.MethodPut, fmt.Sprintf("/products/%d", prod.ID), map[string]any{"title": "Updated"}, ownerToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	decodeData(t, rec, &got)
	require.Equal(t, "Updated", got.Title)
}

func TestUpdateUnownedProductAnonymous(t *testing.T) {
	env := newTestEnv(t)
	prod := seedProduct(t, env, nil, nil)

	rec := env.doJSON(t, http.MethodPatch, fmt.Sprintf("/products/%d", prod.ID), map[string]any{
		"title": "Renamed",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	decodeData(t, rec, &got)
	require.Equal(t, "Renamed", got.Title)
}

func TestDeleteProductCleansLocalFiles(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "Ali", "ali@example.com", models.RoleUser)
	prod := seedProduct(t, env, []string{"http://cdn.example.com/a.png", "file1.jpg"}, &user.ID)
	writeUpload(t, env, "file1.jpg")

	rec := env.do(http.MethodDelete, fmt.Sprintf("/products/%d", prod.ID), nil, "", token)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	require.True(t, body.Success)
	require.Equal(t, "Product deleted successfully", body.Message)

	_, err := os.Stat(filepath.Join(env.Root, "products", "file1.jpg"))
	require.True(t, os.IsNotExist(err))

	err = env.DB.First(&models.Product{}, prod.ID).Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestDeleteProductToleratesMissingFile(t *testing.T) {
	env := newTestEnv(t)
	prod := seedProduct(t, env, []string{"ghost.jpg"}, nil)

	rec := env.do(http.MethodDelete, fmt.Sprintf("/products/%d", prod.ID), nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode(t, rec).Success)
}

func TestDeleteProductOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.createUser(t, "Owner", "owner@example.com", models.RoleUser)
	_, otherToken := env.createUser(t, "Other", "other@example.com", models.RoleUser)
	prod := seedProduct(t, env, nil, &owner.ID)

	rec := env.do(http.MethodDelete, fmt.Sprintf("/products/%d", prod.ID), nil, "", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/products/%d", prod.ID), nil, "", otherToken)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/products/%d", prod.ID), nil, "", ownerToken)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteProductErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodDelete, "/products/abc", nil, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid product ID", decode(t, rec).Error)

	rec = env.do(http.MethodDelete, "/products/999", nil, "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Product not found", decode(t, rec).Error)
}

func TestCloudinaryConfig(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/products/cloudinary/config", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		CloudName    string `json:"cloudName"`
		UploadPreset string `json:"uploadPreset"`
	}
	decodeData(t, rec, &out)
	require.Empty(t, out.CloudName)
	require.Equal(t, "unsigned_uploads", out.UploadPreset)
}

func TestSearchEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/products/search", nil, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Missing query", decode(t, rec).Error)

	rec = env.do(http.MethodGet, "/products/search?q=phone", nil, "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
