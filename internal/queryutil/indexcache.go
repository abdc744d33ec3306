package queryutil

import "sync"

// IndexCache tracks whether a named index/collection/table is known to
// exist, safe for concurrent compute-if-absent use across goroutines (the
// document strategy's index-existence cache, spec §4.3/§5). Backed by
// sync.Map so reads never contend with each other; the create path is
// additionally guarded by a mutex so two goroutines racing to create the
// same name don't both issue a CreateCollection/CREATE TABLE call.
type IndexCache struct {
	exists    sync.Map // name -> struct{}
	createMus sync.Map // name -> *sync.Mutex
}

// NewIndexCache returns an empty cache.
func NewIndexCache() *IndexCache {
	return &IndexCache{}
}

// Known reports whether name is already marked as existing.
func (c *IndexCache) Known(name string) bool {
	_, ok := c.exists.Load(name)
	return ok
}

// MarkExists records that name is now known to exist. Idempotent: calling it
// after an "already exists" error from a create call is always safe and
// makes the create call effectively a no-op on retry.
func (c *IndexCache) MarkExists(name string) {
	c.exists.Store(name, struct{}{})
}

func (c *IndexCache) lockFor(name string) *sync.Mutex {
	mu, _ := c.createMus.LoadOrStore(name, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// EnsureExists calls create() only if name is not already known to exist,
// and marks name as existing afterward on success or on an "already exists"
// condition reported by create() via alreadyExists returning true.
func (c *IndexCache) EnsureExists(name string, create func() error, alreadyExists func(error) bool) error {
	if c.Known(name) {
		return nil
	}
	mu := c.lockFor(name)
	mu.Lock()
	defer mu.Unlock()
	if c.Known(name) {
		return nil
	}
	if err := create(); err != nil {
		if alreadyExists != nil && alreadyExists(err) {
			c.MarkExists(name)
			return nil
		}
		return err
	}
	c.MarkExists(name)
	return nil
}
