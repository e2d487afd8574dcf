package model

import (
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth    = "auth"
	EventCategoryProduct = "product"
	EventCategoryUser    = "user"
	EventCategoryStaging = "staging"
	EventCategorySystem  = "system"
	EventCategoryCache   = "cache"
)

// Event is an entry of the local activity log.
// Actor is the email of the admin who triggered it, empty for system events.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Actor     string
	Metadata  string // JSON string
	CreatedAt time.Time
}
