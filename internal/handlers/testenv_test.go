package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/useandsell/marketplace/internal/handlers"
	"github.com/useandsell/marketplace/internal/hash"
	"github.com/useandsell/marketplace/internal/middleware/auth"
	"github.com/useandsell/marketplace/internal/models"
	"github.com/useandsell/marketplace/internal/service/search"
	"github.com/useandsell/marketplace/internal/storage"
	httpserver "github.com/useandsell/marketplace/internal/transport/http"
)

type testEnv struct {
	E      *echo.Echo
	DB     *gorm.DB
	Secret []byte
	Disk   *storage.Disk
	Root   string
}

// newTestEnv wires the full router against an in-memory database and a
// throwaway uploads directory. Kafka and Elasticsearch stay nil.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second connection would see its own empty in-memory database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}))

	root := t.TempDir()
	disk, err := storage.NewDisk(root)
	require.NoError(t, err)

	secret := []byte("test-secret")

	e := echo.New()
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	deps := httpserver.Deps{
		DB:             db,
		JWTSecret:      secret,
		AuthHandler:    &handlers.AuthHandler{DB: db, JWTSecret: secret},
		UserHandler:    &handlers.UserHandler{DB: db},
		ProductHandler: &handlers.ProductHandler{DB: db, Store: disk, Uploads: disk},
		AdminHandler:   &handlers.AdminProductHandler{DB: db, Store: disk},
		StatsHandler:   &handlers.StatsHandler{DB: db},
		SearchHandler:  &handlers.SearchHandler{Index: search.Index},
	}
	httpserver.Register(e, &deps)

	return &testEnv{E: e, DB: db, Secret: secret, Disk: disk, Root: root}
}

func (te *testEnv) createUser(t *testing.T, name, email, role string) (models.User, string) {
	t.Helper()

	pwHash, err := hash.HashPassword("password123")
	require.NoError(t, err)

	user := models.User{Name: name, Email: email, PasswordHash: pwHash, Role: role}
	require.NoError(t, te.DB.Create(&user).Error)

	token, err := auth.SignToken(te.Secret, user.ID, user.Role)
	require.NoError(t, err)
	return user, token
}

func (te *testEnv) do(method, path string, body io.Reader, contentType, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	te.E.ServeHTTP(rec, req)
	return rec
}

func (te *testEnv) doJSON(t *testing.T, method, path string, payload any, token string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return te.do(method, path, bytes.NewReader(data), echo.MIMEApplicationJSON, token)
}

// envelope mirrors the response wrapper every endpoint emits.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	body := decode(t, rec)
	require.True(t, body.Success, "body: %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(body.Data, out))
}

func multipartBody(t *testing.T, fields map[string][]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, vals := range fields {
		for _, v := range vals {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
