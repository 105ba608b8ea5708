package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/useandsell/marketplace/internal/forms"
)

// maxUploadFiles caps the binary parts accepted in the "files" field.
const maxUploadFiles = 12

// productForm holds every product field as a boundary-normalized value.
// Binary uploads live in the "files" multipart field, pre-hosted URLs in
// "imageUrls", and references to retain on update in "existingImages".
type productForm struct {
	Title        forms.Value
	Category     forms.Value
	MobileBrand  forms.Value
	PtaStatus    forms.Value
	Condition    forms.Value
	Description  forms.Value
	Price        forms.Value
	Location     forms.Value
	ContactName  forms.Value
	ContactPhone forms.Value
	Status       forms.Value
	AcceptTerms  forms.Value

	ImageURLs      forms.Value
	ExistingImages forms.Value
}

func formFields(get func(string) forms.Value) *productForm {
	return &productForm{
		Title:        get("title"),
		Category:     get("category"),
		MobileBrand:  get("mobileBrand"),
		PtaStatus:    get("ptaStatus"),
		Condition:    get("condition"),
		Description:  get("description"),
		Price:        get("price"),
		Location:     get("location"),
		ContactName:  get("contactName"),
		ContactPhone: get("contactPhone"),
		Status:       get("status"),
		AcceptTerms:  get("acceptTerms"),

		ImageURLs:      get("imageUrls"),
		ExistingImages: get("existingImages"),
	}
}

// parseProductForm reads a create/update request body. Multipart and
// urlencoded bodies arrive as form value lists; JSON bodies as arbitrarily
// shaped values. Either way each field is folded into a forms.Value once.
func parseProductForm(c echo.Context) (*productForm, []*multipart.FileHeader, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)

	switch {
	case strings.HasPrefix(ct, echo.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
		}
		files := form.File["files"]
		if len(files) > maxUploadFiles {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "Too many files")
		}
		f := formFields(func(key string) forms.Value {
			return forms.FromList(form.Value[key])
		})
		return f, files, nil

	case strings.HasPrefix(ct, echo.MIMEApplicationJSON):
		var body map[string]any
		if err := c.Bind(&body); err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		f := formFields(func(key string) forms.Value {
			return forms.FromAny(body[key])
		})
		return f, nil, nil

	default:
		if err := c.Request().ParseForm(); err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid form")
		}
		f := formFields(func(key string) forms.Value {
			return forms.FromList(c.Request().PostForm[key])
		})
		return f, nil, nil
	}
}
