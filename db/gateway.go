package db

import "context"

// Keys under which the store persists its collections
const (
	ClassesKey    = "classes"    // JSON array of {id, name, time}
	AttendanceKey = "attendance" // JSON object id -> "attended" | "missed"
)

// Gateway is the key/value contract the attendance store persists through.
// Values are raw JSON documents. Get reports ok=false for a missing key.
type Gateway interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}
