package apperr

import "github.com/ngocanhtran/product-catalog/pkg/zerror"

const (
	ValidationErrorCode = "VALIDATION_FAILED"
)

var (
	ValidationErr = zerror.NewValidationFailed(ValidationErrorCode, "validation error")

	UnauthenticatedErr = zerror.NewUnauthorized("UNAUTHENTICATED", "authentication required")

	// ProductNotFoundErr covers both a missing product and a product owned by
	// another user. The two cases must stay indistinguishable to the caller.
	ProductNotFoundErr = zerror.NewNotFound("PRODUCT_NOT_FOUND", "product not found")

	// CategoryNotFoundErr is a form-level failure: the submitted category does
	// not exist, so the write is rejected like any other invalid input.
	CategoryNotFoundErr = zerror.NewValidationFailed("CATEGORY_NOT_FOUND", "selected category does not exist")

	UsernameTakenErr = zerror.NewConflict("USERNAME_TAKEN", "username is already taken")

	InvalidCredentialsErr = zerror.NewUnauthorized("INVALID_CREDENTIALS", "invalid username or password")
)
