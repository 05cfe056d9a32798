package constants

// Context keys
const (
	ContextKeyUserID = "user_id"
	ContextKeyTask   = "task"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
	SessionCookieName = "markettask_session"
)

// Receipt numbering
const ReceiptSequenceDigits = 4
