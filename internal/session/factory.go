package session

import (
	"fmt"
	"time"
)

// NewStore creates a session store for backend "redis" (default) or "memory".
func NewStore(backend, url string) (Store, error) {
	switch backend {
	case "redis", "":
		return NewRedisStore(url)
	case "memory":
		return NewMemoryStore(10 * time.Minute), nil
	default:
		return nil, fmt.Errorf("unknown session backend: %s (supported: redis, memory)", backend)
	}
}
