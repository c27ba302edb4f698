package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ngocanhtran/product-catalog/internal/config"
	cataloghttp "github.com/ngocanhtran/product-catalog/internal/http"
	"github.com/ngocanhtran/product-catalog/internal/http/apierr"
	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/repository/memory"
	"github.com/ngocanhtran/product-catalog/internal/service"
	"github.com/ngocanhtran/product-catalog/internal/session"
	"github.com/ngocanhtran/product-catalog/pkg/validator"
)

var (
	clothingID    = uuid.MustParse("018f0000-0000-7000-8000-000000000001")
	electronicsID = uuid.MustParse("018f0000-0000-7000-8000-000000000002")
)

type testEnv struct {
	router     chi.Router
	catalogSvc service.CatalogService
	sessions   *session.Manager
	uploadDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	store.SeedCategories([]model.Category{
		{ID: clothingID, Name: "Clothing"},
		{ID: electronicsID, Name: "Electronics"},
	})

	valid, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	authCfg := config.Auth{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		CookieName:    "catalog_session",
		BcryptCost:    bcrypt.MinCost,
	}

	sessions := session.NewManager(authCfg)
	authSvc := service.NewAuthService(authCfg, memory.NewUserRepository(store), valid)
	catalogSvc := service.NewCatalogService(
		memory.DB{},
		memory.NewProductRepository(store),
		memory.NewCategoryRepository(store),
		valid,
	)

	uploadDir := t.TempDir()

	svc := cataloghttp.New(
		config.HTTP{},
		config.Storage{UploadDir: uploadDir},
		slog.New(slog.DiscardHandler),
		sessions,
		authSvc,
		catalogSvc,
		nil,
	)

	router := chi.NewRouter()
	svc.RegisterHandlers(router)

	return &testEnv{
		router:     router,
		catalogSvc: catalogSvc,
		sessions:   sessions,
		uploadDir:  uploadDir,
	}
}

// doMultipart posts a multipart form, with an optional image part.
func (e *testEnv) doMultipart(t *testing.T, target string, fields map[string]string, imageName string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, value := range fields {
		require.NoError(t, mw.WriteField(field, value))
	}
	if imageName != "" {
		part, err := mw.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) uploadCount(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir(e.uploadDir)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func (e *testEnv) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register creates a user through the API and returns its session cookie.
func (e *testEnv) register(t *testing.T, username string) *http.Cookie {
	t.Helper()

	w := e.do(http.MethodPost, "/register/", url.Values{
		"username": {username},
		"password": {"password123"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "catalog_session" && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie on register response")
	return nil
}

func decodeListing(t *testing.T, w *httptest.ResponseRecorder) cataloghttp.ListingResponse {
	t.Helper()

	var listing cataloghttp.ListingResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listing))
	return listing
}

func TestUnauthenticatedRequestsRedirectToLogin(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{
		"/",
		"/add/",
		fmt.Sprintf("/edit/%s/", uuid.New()),
		fmt.Sprintf("/delete/%s/", uuid.New()),
		"/logout/",
	}

	for _, path := range paths {
		w := env.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, w.Code, path)
		assert.Equal(t, "/login/", w.Header().Get("Location"), path)
	}
}

func TestRegisterAutoAuthenticates(t *testing.T) {
	env := newTestEnv(t)

	// No explicit login between registration and the listing request.
	cookie := env.register(t, "alice")

	w := env.do(http.MethodGet, "/", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterSurfacesFlashOnNextPage(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/register/", url.Values{
		"username": {"alice"},
		"password": {"password123"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)

	cookies := w.Result().Cookies()
	listing := decodeListing(t, env.do(http.MethodGet, "/", nil, cookies...))
	assert.Equal(t, "Registration successful", listing.Notice)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	t.Run("short password echoes the username", func(t *testing.T) {
		w := env.do(http.MethodPost, "/register/", url.Values{
			"username": {"alice"},
			"password": {"short"},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var res apierr.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
		assert.Equal(t, "alice", res.Values["username"])
		assert.NotContains(t, res.Values, "password")
	})

	t.Run("duplicate username", func(t *testing.T) {
		env.register(t, "alice")

		w := env.do(http.MethodPost, "/register/", url.Values{
			"username": {"alice"},
			"password": {"password123"},
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("authenticated caller is redirected away", func(t *testing.T) {
		cookie := env.register(t, "bob")

		w := env.do(http.MethodGet, "/register/", nil, cookie)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	t.Run("bad credentials", func(t *testing.T) {
		w := env.do(http.MethodPost, "/login/", url.Values{
			"username": {"alice"},
			"password": {"wrong password"},
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	var sessionCookie *http.Cookie
	t.Run("good credentials set a session", func(t *testing.T) {
		w := env.do(http.MethodPost, "/login/", url.Values{
			"username": {"alice"},
			"password": {"password123"},
		})
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		for _, cookie := range w.Result().Cookies() {
			if cookie.Name == "catalog_session" {
				sessionCookie = cookie
			}
		}
		require.NotNil(t, sessionCookie)
	})

	t.Run("logout clears the session", func(t *testing.T) {
		w := env.do(http.MethodPost, "/logout/", nil, sessionCookie)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login/", w.Header().Get("Location"))

		for _, cookie := range w.Result().Cookies() {
			if cookie.Name == "catalog_session" {
				assert.Negative(t, cookie.MaxAge)
			}
		}
	})
}

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")

	var productID uuid.UUID

	t.Run("create redirects and flashes", func(t *testing.T) {
		w := env.do(http.MethodPost, "/add/", url.Values{
			"name":     {"Blue Shirt"},
			"price":    {"19.99"},
			"category": {clothingID.String()},
		}, cookie)
		require.Equal(t, http.StatusSeeOther, w.Code)

		listing := decodeListing(t, env.do(http.MethodGet, "/", nil, append(w.Result().Cookies(), cookie)...))
		require.Len(t, listing.Products, 1)
		assert.Equal(t, "Blue Shirt", listing.Products[0].Name)
		assert.Equal(t, "Product added successfully", listing.Notice)

		productID = listing.Products[0].ID
	})

	t.Run("edit form returns the product and categories", func(t *testing.T) {
		w := env.do(http.MethodGet, fmt.Sprintf("/edit/%s/", productID), nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)

		var res cataloghttp.ProductFormResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
		require.NotNil(t, res.Product)
		assert.Equal(t, "Blue Shirt", res.Product.Name)
		assert.Len(t, res.Categories, 2)
	})

	t.Run("update rewrites fields in place", func(t *testing.T) {
		w := env.do(http.MethodPost, fmt.Sprintf("/edit/%s/", productID), url.Values{
			"name":     {"Red Shirt"},
			"price":    {"24.99"},
			"category": {clothingID.String()},
		}, cookie)
		require.Equal(t, http.StatusSeeOther, w.Code)

		listing := decodeListing(t, env.do(http.MethodGet, "/", nil, cookie))
		require.Len(t, listing.Products, 1)
		assert.Equal(t, "Red Shirt", listing.Products[0].Name)
		assert.Equal(t, productID, listing.Products[0].ID)
	})

	t.Run("delete confirmation does not delete", func(t *testing.T) {
		w := env.do(http.MethodGet, fmt.Sprintf("/delete/%s/", productID), nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)

		listing := decodeListing(t, env.do(http.MethodGet, "/", nil, cookie))
		assert.Len(t, listing.Products, 1)
	})

	t.Run("delete removes permanently", func(t *testing.T) {
		w := env.do(http.MethodPost, fmt.Sprintf("/delete/%s/", productID), nil, cookie)
		require.Equal(t, http.StatusSeeOther, w.Code)

		listing := decodeListing(t, env.do(http.MethodGet, "/", nil, cookie))
		assert.Empty(t, listing.Products)
		assert.EqualValues(t, 0, listing.TotalProducts)
	})
}

func TestCreateValidationEchoesSubmittedValues(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")

	w := env.do(http.MethodPost, "/add/", url.Values{
		"description": {"no name given"},
		"price":       {"12.50"},
	}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var res apierr.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))

	require.NotEmpty(t, res.Details)
	assert.Equal(t, "Name", res.Details[0].Field)
	assert.Equal(t, "no name given", res.Values["description"])
	assert.Equal(t, "12.50", res.Values["price"])

	// Nothing was written.
	listing := decodeListing(t, env.do(http.MethodGet, "/", nil, cookie))
	assert.Empty(t, listing.Products)
}

func TestImageUpload(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")

	t.Run("valid form stores the image", func(t *testing.T) {
		w := env.doMultipart(t, "/add/", map[string]string{
			"name":  "Desk Lamp",
			"price": "15",
		}, "lamp.png", cookie)
		require.Equal(t, http.StatusSeeOther, w.Code)

		assert.Equal(t, 1, env.uploadCount(t))

		listing := decodeListing(t, env.do(http.MethodGet, "/", nil, cookie))
		require.Len(t, listing.Products, 1)
		assert.True(t, strings.HasSuffix(listing.Products[0].ImagePath, ".png"))
	})

	t.Run("missing image part is fine", func(t *testing.T) {
		w := env.doMultipart(t, "/add/", map[string]string{
			"name":  "Bare Lamp",
			"price": "15",
		}, "", cookie)
		assert.Equal(t, http.StatusSeeOther, w.Code)
	})

	t.Run("rejected form leaves no file behind", func(t *testing.T) {
		before := env.uploadCount(t)

		w := env.doMultipart(t, "/add/", map[string]string{
			"price": "15", // name missing
		}, "orphan.png", cookie)
		require.Equal(t, http.StatusBadRequest, w.Code)

		assert.Equal(t, before, env.uploadCount(t))
	})

	t.Run("unreadable multipart body is a validation error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/add/", strings.NewReader("not multipart at all"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=broken")
		req.AddCookie(cookie)

		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMutationIsOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	aliceCookie := env.register(t, "alice")
	bobCookie := env.register(t, "bob")

	w := env.do(http.MethodPost, "/add/", url.Values{
		"name":  {"Alice Lamp"},
		"price": {"5"},
	}, aliceCookie)
	require.Equal(t, http.StatusSeeOther, w.Code)

	listing := decodeListing(t, env.do(http.MethodGet, "/", nil, aliceCookie))
	require.Len(t, listing.Products, 1)
	productID := listing.Products[0].ID

	t.Run("listing is globally visible", func(t *testing.T) {
		bobListing := decodeListing(t, env.do(http.MethodGet, "/", nil, bobCookie))
		assert.Len(t, bobListing.Products, 1)
	})

	t.Run("foreign and missing ids are indistinguishable", func(t *testing.T) {
		foreign := env.do(http.MethodPost, fmt.Sprintf("/delete/%s/", productID), nil, bobCookie)
		missing := env.do(http.MethodPost, fmt.Sprintf("/delete/%s/", uuid.New()), nil, aliceCookie)

		assert.Equal(t, http.StatusNotFound, foreign.Code)
		assert.Equal(t, http.StatusNotFound, missing.Code)
		assert.JSONEq(t, foreign.Body.String(), missing.Body.String())
	})

	t.Run("edit by non-owner is not found", func(t *testing.T) {
		w := env.do(http.MethodPost, fmt.Sprintf("/edit/%s/", productID), url.Values{
			"name":  {"Bob Lamp"},
			"price": {"5"},
		}, bobCookie)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		w := env.do(http.MethodGet, "/edit/not-a-uuid/", nil, aliceCookie)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListingQueryParams(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice")

	names := []string{"Blue Shirt", "shirt2", "SHIRT", "Pants"}
	for _, name := range names {
		w := env.do(http.MethodPost, "/add/", url.Values{
			"name":     {name},
			"price":    {"10"},
			"category": {clothingID.String()},
		}, cookie)
		require.Equal(t, http.StatusSeeOther, w.Code)
	}

	t.Run("q filters case-insensitively", func(t *testing.T) {
		listing := decodeListing(t, env.do(http.MethodGet, "/?q=shirt", nil, cookie))
		assert.EqualValues(t, 3, listing.TotalProducts)
	})

	t.Run("category filters exactly", func(t *testing.T) {
		listing := decodeListing(t, env.do(http.MethodGet, "/?category="+electronicsID.String(), nil, cookie))
		assert.EqualValues(t, 0, listing.TotalProducts)
	})

	t.Run("page is clamped", func(t *testing.T) {
		listing := decodeListing(t, env.do(http.MethodGet, "/?page=99", nil, cookie))
		assert.Equal(t, 1, listing.Page)
		assert.Len(t, listing.Products, 4)
	})

	t.Run("non-numeric page falls back to the first page", func(t *testing.T) {
		listing := decodeListing(t, env.do(http.MethodGet, "/?page=abc", nil, cookie))
		assert.Equal(t, 1, listing.Page)
	})

	t.Run("malformed category is a validation error", func(t *testing.T) {
		w := env.do(http.MethodGet, "/?category=not-a-uuid", nil, cookie)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
