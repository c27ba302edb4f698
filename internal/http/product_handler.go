package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ngocanhtran/product-catalog/internal/apperr"
	"github.com/ngocanhtran/product-catalog/internal/model"
	"github.com/ngocanhtran/product-catalog/internal/service"
	"github.com/ngocanhtran/product-catalog/internal/session"
)

const maxUploadBytes = 32 << 20 // 32 MB

type productHandler struct {
	*Service
	catalogSvc service.CatalogService
	uploads    *uploadSaver
}

func newProductHandler(s *Service, catalogSvc service.CatalogService, uploads *uploadSaver) *productHandler {
	return &productHandler{
		Service:    s,
		catalogSvc: catalogSvc,
		uploads:    uploads,
	}
}

// ListingResponse is the listing payload: one page of products plus the
// pending notice, if any.
type ListingResponse struct {
	service.ProductListing
	Notice string `json:"notice,omitempty"`
}

// List handles GET /. Query params: q (name substring, case-insensitive),
// category (category id), page (1-based, clamped).
func (h *productHandler) List(w http.ResponseWriter, r *http.Request) {
	params := service.ListProductsParams{
		Query: r.URL.Query().Get("q"),
	}

	if raw := r.URL.Query().Get("category"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			h.writeError(w, r, apperr.ValidationErr.WrapParent(err))
			return
		}
		params.CategoryID = &categoryID
	}

	// A non-numeric page falls back to the first page, out-of-range pages
	// are clamped by the service.
	if raw := r.URL.Query().Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			params.Page = page
		}
	}

	listing, err := h.catalogSvc.ListProducts(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ListingResponse{
		ProductListing: listing,
		Notice:         popFlash(w, r),
	})
}

// ProductFormResponse backs the add and edit forms. Product is nil on the
// add form.
type ProductFormResponse struct {
	Product    *model.Product   `json:"product,omitempty"`
	Categories []model.Category `json:"categories"`
}

// AddForm handles GET /add/.
func (h *productHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogSvc.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ProductFormResponse{Categories: categories})
}

// Create handles POST /add/.
func (h *productHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())

	params, values, err := h.parseProductForm(r)
	if err != nil {
		h.writeFormError(w, r, err, values)
		return
	}

	if _, err := h.catalogSvc.CreateProduct(r.Context(), owner, params); err != nil {
		h.discardUpload(r, params.ImagePath)
		h.writeFormError(w, r, err, values)
		return
	}

	setFlash(w, "Product added successfully")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// EditForm handles GET /edit/{id}/, owner-scoped.
func (h *productHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())

	id, err := productID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.catalogSvc.GetOwnedProduct(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	categories, err := h.catalogSvc.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ProductFormResponse{
		Product:    &product,
		Categories: categories,
	})
}

// Update handles POST /edit/{id}/, owner-scoped.
func (h *productHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())

	id, err := productID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	params, values, err := h.parseProductForm(r)
	if err != nil {
		h.writeFormError(w, r, err, values)
		return
	}

	if _, err := h.catalogSvc.UpdateProduct(r.Context(), owner, id, params); err != nil {
		h.discardUpload(r, params.ImagePath)
		h.writeFormError(w, r, err, values)
		return
	}

	setFlash(w, "Product updated successfully")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DeleteConfirm handles GET /delete/{id}/: it returns the product so the
// caller can render a confirmation, without deleting anything.
func (h *productHandler) DeleteConfirm(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())

	id, err := productID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	product, err := h.catalogSvc.GetOwnedProduct(r.Context(), owner, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]model.Product{"product": product})
}

// Delete handles POST /delete/{id}/. Deletion is immediate and permanent.
func (h *productHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, _ := session.FromContext(r.Context())

	id, err := productID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.catalogSvc.DeleteProduct(r.Context(), owner, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	setFlash(w, "Product deleted successfully")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// discardUpload rolls back a saved image when the form it came with was
// rejected, so failed submissions leave nothing behind in the upload dir.
func (h *productHandler) discardUpload(r *http.Request, name string) {
	if err := h.uploads.Remove(name); err != nil {
		h.logger.WarnContext(r.Context(), "error removing rejected upload", slog.Any("error", err))
	}
}

// productID parses the {id} path value. A malformed id cannot name an
// existing product, so it maps to the same not-found outcome.
func productID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.ProductNotFoundErr
	}
	return id, nil
}

// parseProductForm reads the product form fields from an urlencoded or
// multipart body. It always returns the submitted values (for re-rendering)
// alongside the parsed params or the parse error.
func (h *productHandler) parseProductForm(r *http.Request) (service.ProductFormParams, map[string]string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return service.ProductFormParams{}, nil, apperr.ValidationErr.WrapParent(err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return service.ProductFormParams{}, nil, apperr.ValidationErr.WrapParent(err)
		}
	}

	values := map[string]string{
		"name":        r.PostFormValue("name"),
		"description": r.PostFormValue("description"),
		"sku":         r.PostFormValue("sku"),
		"price":       r.PostFormValue("price"),
		"category":    r.PostFormValue("category"),
	}

	params := service.ProductFormParams{
		Name:        values["name"],
		Description: values["description"],
		Sku:         values["sku"],
	}

	if raw := values["price"]; raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return params, values, apperr.ValidationErr.WrapParent(err)
		}
		params.Price = price
	}

	if raw := values["category"]; raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			return params, values, apperr.CategoryNotFoundErr
		}
		params.CategoryID = &categoryID
	}

	if r.MultipartForm != nil {
		file, header, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			// No upload, keep the existing image.
		case err != nil:
			return params, values, apperr.ValidationErr.WrapParent(err)
		default:
			defer file.Close()

			imagePath, err := h.uploads.Save(file, header)
			if err != nil {
				return params, values, err
			}
			params.ImagePath = imagePath
		}
	}

	return params, values, nil
}
