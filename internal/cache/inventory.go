package cache

import "time"

const (
	UserKeyPrefix = "user:"
)

const (
	UserTTL = 5 * time.Minute
)

// UserKey is the cache key for a single user row.
func UserKey(userID string) string {
	return UserKeyPrefix + userID
}
