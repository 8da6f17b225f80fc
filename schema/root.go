package schema

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Root is the distinguished top-level Namespace (spec section 4.5): the
// one Namespace with no parent and an empty name, against which every
// absolute lookup ultimately resolves. Safe for concurrent ResolveAll
// callers: only the first caller does the work, the rest observe its
// result, via the same golang.org/x/sync/singleflight the per-field
// encoder cache uses (internal/fieldcodec.Cache).
type Root struct {
	Namespace

	mu       sync.Mutex
	resolved bool
	sf       singleflight.Group
}

// NewRoot constructs an empty Root.
func NewRoot() *Root {
	return &Root{Namespace: Namespace{Base: newBase("")}}
}

// ResolveAll resolves every Field, Type, Enum, and Service reachable
// from the root, depth-first, exactly once: concurrent callers before
// the first resolution completes all block on and share its result,
// per spec section 5 ("ResolveAll... is the one mutating operation
// that must be safe to call concurrently; callers racing to trigger it
// must not perform redundant or conflicting work").
func (r *Root) ResolveAll() error {
	r.mu.Lock()
	if r.resolved {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	_, err, _ := r.sf.Do("resolveAll", func() (interface{}, error) {
		r.mu.Lock()
		already := r.resolved
		r.mu.Unlock()
		if already {
			return nil, nil
		}
		if err := r.Namespace.resolveAllDFS(r); err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.resolved = true
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// Resolved reports whether ResolveAll has completed successfully at
// least once.
func (r *Root) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}
