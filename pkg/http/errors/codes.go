package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeInvalidTopic     = "invalid_topic"

	// Resource errors
	ErrCodeNotFound              = "not_found"
	ErrCodeTopicNotFound         = "topic_not_found"
	ErrCodeInsufficientQuestions = "insufficient_questions"
	ErrCodeDuplicateQuestion     = "duplicate_question"

	// Acquisition errors
	ErrCodeGenerationExhausted = "generation_exhausted"
	ErrCodeStorageFailure      = "storage_failure"
	ErrCodeTimeout             = "timeout"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"

	// Feature availability
	ErrCodeFeatureNotAvailable = "feature_not_available"
)
