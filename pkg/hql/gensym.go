package hql

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// GensymSource produces fresh, hygienically-unique symbols for one
// compilation. Uniqueness is namespaced by a per-transpile-call session
// id in addition to a monotonic counter, so macro expansions from two
// separate Transpile calls never collide if later concatenated by an
// external bundler -- a monotonic counter alone is unique only within
// one compilation, not across several.
type GensymSource struct {
	session string
	counter uint64
}

// NewGensymSource creates a fresh source with a new session id.
func NewGensymSource() *GensymSource {
	return &GensymSource{session: uuid.NewString()[:8]}
}

// Gensym returns a fresh symbol. prefix defaults to "g" when empty.
func (g *GensymSource) Gensym(prefix string) string {
	if prefix == "" {
		prefix = "g"
	}
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s__%s_%d", prefix, g.session, n)
}
