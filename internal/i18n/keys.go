package i18n

// Translation keys constants
const (
	// Common
	KeyInternalError = "common.internal_error"
	KeyRateLimited   = "common.rate_limited"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthTokenRefreshed     = "auth.token_refreshed"

	// Users
	KeyUserNotFound = "user.not_found"

	// Closet
	KeyOutfitUploaded     = "outfit.uploaded"
	KeyOutfitUpdated      = "outfit.updated"
	KeyOutfitDeleted      = "outfit.deleted"
	KeyOutfitNotFound     = "outfit.not_found"
	KeyOutfitForbidden    = "outfit.forbidden"
	KeyOutfitInvalidID    = "outfit.invalid_id"
	KeyOutfitNoFiles      = "outfit.no_files"
	KeyOutfitAnalysisFail = "outfit.analysis_failed"
	KeyOutfitSaveFail     = "outfit.save_failed"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// File Upload
	KeyFileInvalidType = "file.invalid_type"
	KeyFileTooLarge    = "file.too_large"
	KeyFileTooMany     = "file.too_many"
	KeyFileNotImage    = "file.not_image"
	KeyFileUploadFail  = "file.upload_failed"
)
