package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"live-auction/internal/biddingerrors"
	"live-auction/utils"

	"github.com/goccy/go-json"
)

var errRepoClosed = fmt.Errorf("memory repo closed: %w", biddingerrors.ErrConnectivity)

// MemoryRepo is a concurrency-safe in-memory implementation of RealtimeDB.
// Data is kept as one JSON tree, the way a realtime database export looks.
type MemoryRepo struct {
	mu     sync.RWMutex
	root   map[string]any
	subs   map[*subscriber]struct{}
	closed bool
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		root: make(map[string]any),
		subs: make(map[*subscriber]struct{}),
	}
}

func decodeNode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *MemoryRepo) lookup(path string) (any, bool) {
	var node any = r.root
	for _, seg := range splitPath(path) {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	if m, ok := node.(map[string]any); ok && len(m) == 0 {
		return nil, false
	}
	return node, true
}

func (r *MemoryRepo) encodeAt(path string) []byte {
	node, ok := r.lookup(path)
	if !ok {
		return nil
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return nil
	}
	return raw
}

func (r *MemoryRepo) setNode(path string, v any) {
	segs := splitPath(path)
	if len(segs) == 0 {
		if m, ok := v.(map[string]any); ok {
			r.root = m
		} else {
			r.root = make(map[string]any)
		}
		return
	}
	if v == nil {
		r.deleteNode(path)
		return
	}
	node := r.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = v
}

// deleteNode removes path and prunes parents left empty
func (r *MemoryRepo) deleteNode(path string) bool {
	segs := splitPath(path)
	if len(segs) == 0 {
		existed := len(r.root) > 0
		r.root = make(map[string]any)
		return existed
	}
	chain := []map[string]any{r.root}
	node := r.root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			return false
		}
		chain = append(chain, next)
		node = next
	}
	last := segs[len(segs)-1]
	if _, ok := node[last]; !ok {
		return false
	}
	delete(node, last)

	for i := len(chain) - 1; i > 0; i-- {
		if len(chain[i]) > 0 {
			break
		}
		delete(chain[i-1], segs[i-1])
	}
	return true
}

// notify offers fresh snapshots to every subscriber affected by a write to path.
// Callers hold r.mu.
func (r *MemoryRepo) notify(path string) {
	for s := range r.subs {
		if related(s.path, path) {
			s.offer(Snapshot{Path: s.path, Value: r.encodeAt(s.path)})
		}
	}
}

// Get returns the JSON value at path
func (r *MemoryRepo) Get(ctx context.Context, path string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errRepoClosed
	}
	raw := r.encodeAt(path)
	if raw == nil {
		return nil, fmt.Errorf("get %s: %w", path, biddingerrors.ErrPathNotFound)
	}
	return raw, nil
}

// Set overwrites path. Writing JSON null removes it.
func (r *MemoryRepo) Set(ctx context.Context, path string, value []byte) error {
	v, err := decodeNode(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRepoClosed
	}
	r.setNode(path, v)
	r.notify(path)
	return nil
}

// Update applies fn under the write lock, so it never conflicts. fn must not
// call back into the repo.
func (r *MemoryRepo) Update(ctx context.Context, path string, fn UpdateFunc) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update %s: %w", path, biddingerrors.ErrRetryAborted)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRepoClosed
	}
	next, err := fn(r.encodeAt(path))
	if err != nil {
		return nil, err
	}
	v, err := decodeNode(next)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", path, err)
	}
	r.setNode(path, v)
	r.notify(path)
	return next, nil
}

// Remove deletes path and everything beneath it. Removing an absent path is a no-op.
func (r *MemoryRepo) Remove(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRepoClosed
	}
	if r.deleteNode(path) {
		r.notify(path)
	}
	return nil
}

// Push appends value under prefix with a time-ordered key
func (r *MemoryRepo) Push(ctx context.Context, prefix string, value []byte) (string, error) {
	key := utils.GeneratePushKey()
	if err := r.Set(ctx, prefix+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}

// Children returns the immediate children of prefix sorted by key
func (r *MemoryRepo) Children(ctx context.Context, prefix string) ([]Child, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errRepoClosed
	}
	node, ok := r.lookup(prefix)
	if !ok {
		return nil, nil
	}
	m, ok := node.(map[string]any)
	if !ok {
		return nil, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	children := make([]Child, 0, len(keys))
	for _, k := range keys {
		raw, err := json.Marshal(m[k])
		if err != nil {
			return nil, fmt.Errorf("children %s: %w", prefix, err)
		}
		children = append(children, Child{Key: k, Value: raw})
	}
	return children, nil
}

// Count returns the number of immediate children of prefix
func (r *MemoryRepo) Count(ctx context.Context, prefix string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return 0, errRepoClosed
	}
	node, ok := r.lookup(prefix)
	if !ok {
		return 0, nil
	}
	m, ok := node.(map[string]any)
	if !ok {
		return 0, nil
	}
	return len(m), nil
}

// Subscribe streams snapshots of path until ctx is done
func (r *MemoryRepo) Subscribe(ctx context.Context, path string) (<-chan Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRepoClosed
	}
	s := newSubscriber(path)
	r.subs[s] = struct{}{}
	s.offer(Snapshot{Path: path, Value: r.encodeAt(path)})

	go s.pump(ctx, func() {
		r.mu.Lock()
		delete(r.subs, s)
		r.mu.Unlock()
	})
	return s.out, nil
}

// Connect opens a connection whose Close runs its disconnect removals
func (r *MemoryRepo) Connect(ctx context.Context) (Connection, error) {
	if err := r.Ping(ctx); err != nil {
		return nil, err
	}
	return &memoryConn{
		id:    utils.GenerateID(),
		repo:  r,
		paths: make(map[string]struct{}),
	}, nil
}

// Ping reports whether the repo is still open
func (r *MemoryRepo) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errRepoClosed
	}
	return nil
}

// Close rejects further operations
func (r *MemoryRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Import replaces the whole tree with a JSON export
func (r *MemoryRepo) Import(raw []byte) error {
	v, err := decodeNode(raw)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if _, ok := v.(map[string]any); !ok && v != nil {
		return fmt.Errorf("import: %w - export root must be an object", biddingerrors.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.setNode("", v)
	r.notify("")
	return nil
}

// Export returns the whole tree as JSON
func (r *MemoryRepo) Export() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return json.Marshal(r.root)
}

type memoryConn struct {
	id   string
	repo *MemoryRepo

	mu     sync.Mutex
	paths  map[string]struct{}
	closed bool
}

func (c *memoryConn) ID() string { return c.id }

func (c *memoryConn) OnDisconnectRemove(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("register cleanup for %s: %w", path, errConnClosed)
	}
	c.paths[path] = struct{}{}
	return nil
}

func (c *memoryConn) CancelOnDisconnect(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.paths, path)
	return nil
}

func (c *memoryConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	paths := c.paths
	c.paths = nil
	c.mu.Unlock()

	var errs []error
	for p := range paths {
		if err := c.repo.Remove(context.Background(), p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var errConnClosed = errors.New("connection closed")
