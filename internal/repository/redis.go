package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"live-auction/internal/biddingerrors"
	"live-auction/internal/metrics"
	"live-auction/utils"

	"github.com/redis/go-redis/v9"
)

const (
	defaultLeaseTTL = 15 * time.Second
	connsKey        = "rt:conns"
)

// valueKey returns the key holding the JSON value stored at path
func valueKey(path string) string {
	return "rt:v:" + strings.Trim(path, "/")
}

// indexKey returns the key of the set of child segments under path
func indexKey(path string) string {
	return "rt:i:" + strings.Trim(path, "/")
}

// channelName returns the pub/sub channel announcing writes to path
func channelName(path string) string {
	return "rt:c:" + strings.Trim(path, "/")
}

// connKey returns the key of the set of paths a connection removes on loss
func connKey(connID string) string {
	return "rt:conn:" + connID
}

// RedisOptions tune a RedisRepo
type RedisOptions struct {
	// LeaseTTL bounds how long a dead connection's presence survives
	// before a reaper removes it.
	LeaseTTL time.Duration
	Now      func() time.Time
}

// RedisRepo implements RealtimeDB on Redis. Values live at one key per path,
// children are tracked in index sets, writes are announced with PUBLISH and
// conditional writes use WATCH/MULTI.
type RedisRepo struct {
	client   *redis.Client
	leaseTTL time.Duration
	now      func() time.Time
}

// NewRedisRepo connects to redisURL and verifies the connection
func NewRedisRepo(ctx context.Context, redisURL string, opts RedisOptions) (*RedisRepo, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", errors.Join(biddingerrors.ErrInvalidInput, err))
	}

	repo := NewRedisRepoFromClient(redis.NewClient(redisOpts), opts)
	if err := repo.Ping(ctx); err != nil {
		_ = repo.client.Close()
		return nil, err
	}
	return repo, nil
}

// NewRedisRepoFromClient wraps an existing client
func NewRedisRepoFromClient(client *redis.Client, opts RedisOptions) *RedisRepo {
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = defaultLeaseTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RedisRepo{client: client, leaseTTL: opts.LeaseTTL, now: opts.Now}
}

func storeErr(op, path string, err error) error {
	return fmt.Errorf("redis %s %s: %w: %w", op, path, biddingerrors.ErrConnectivity, err)
}

// Ping checks the Redis connection
func (r *RedisRepo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return storeErr("ping", "", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisRepo) Close() error {
	return r.client.Close()
}

// readNode returns the value at path, assembling an object from its children
// when the path is not a leaf. nil means absent.
func (r *RedisRepo) readNode(ctx context.Context, path string) ([]byte, error) {
	raw, err := r.client.Get(ctx, valueKey(path)).Bytes()
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, storeErr("get", path, err)
	}

	children, err := r.Children(ctx, path)
	if err != nil {
		return nil, err
	}
	return childrenObject(children)
}

func joinPath(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// Get returns the JSON value at path
func (r *RedisRepo) Get(ctx context.Context, path string) ([]byte, error) {
	raw, err := r.readNode(ctx, path)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("get %s: %w", path, biddingerrors.ErrPathNotFound)
	}
	return raw, nil
}

// indexAncestors records every segment of path in its parent's index set
func indexAncestors(ctx context.Context, pipe redis.Pipeliner, path string) {
	segs := splitPath(path)
	for i := range segs {
		pipe.SAdd(ctx, indexKey(strings.Join(segs[:i], "/")), segs[i])
	}
}

// Set overwrites path, replacing anything beneath it. JSON null removes it.
func (r *RedisRepo) Set(ctx context.Context, path string, value []byte) error {
	if string(value) == "null" {
		return r.Remove(ctx, path)
	}

	n, err := r.client.SCard(ctx, indexKey(path)).Result()
	if err != nil {
		return storeErr("scard", path, err)
	}
	if n > 0 {
		if err := r.Remove(ctx, path); err != nil {
			return err
		}
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, valueKey(path), value, 0)
		indexAncestors(ctx, pipe, path)
		pipe.Publish(ctx, channelName(path), "set")
		return nil
	})
	if err != nil {
		return storeErr("set", path, err)
	}
	return nil
}

// Update runs fn inside WATCH/MULTI and retries on conflict until it commits
// or ctx is done. There is no retry cap.
func (r *RedisRepo) Update(ctx context.Context, path string, fn UpdateFunc) ([]byte, error) {
	key := valueKey(path)
	for {
		var committed []byte
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				cur = nil
			} else if err != nil {
				return storeErr("get", path, err)
			}

			next, err := fn(cur)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, 0)
				indexAncestors(ctx, pipe, path)
				pipe.Publish(ctx, channelName(path), "update")
				return nil
			})
			if err != nil {
				return err
			}
			committed = next
			return nil
		}, key)

		switch {
		case err == nil:
			return committed, nil
		case errors.Is(err, redis.TxFailedErr):
			metrics.StoreUpdateRetries.Inc()
			if ctx.Err() != nil {
				return nil, fmt.Errorf("update %s: %w", path, biddingerrors.ErrRetryAborted)
			}
			continue
		default:
			return nil, err
		}
	}
}

// subtree lists path and every indexed descendant, parents first
func (r *RedisRepo) subtree(ctx context.Context, path string) ([]string, error) {
	out := []string{path}
	members, err := r.client.SMembers(ctx, indexKey(path)).Result()
	if err != nil {
		return nil, storeErr("smembers", path, err)
	}
	for _, m := range members {
		sub, err := r.subtree(ctx, joinPath(path, m))
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// Remove deletes path and everything beneath it, then prunes empty parents
func (r *RedisRepo) Remove(ctx context.Context, path string) error {
	paths, err := r.subtree(ctx, path)
	if err != nil {
		return err
	}

	parent, seg := parentPath(path)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range paths {
			pipe.Del(ctx, valueKey(p), indexKey(p))
		}
		if seg != "" {
			pipe.SRem(ctx, indexKey(parent), seg)
		}
		for _, p := range paths {
			pipe.Publish(ctx, channelName(p), "remove")
		}
		return nil
	})
	if err != nil {
		return storeErr("remove", path, err)
	}

	for parent != "" {
		n, err := r.client.SCard(ctx, indexKey(parent)).Result()
		if err != nil {
			return storeErr("scard", parent, err)
		}
		exists, err := r.client.Exists(ctx, valueKey(parent)).Result()
		if err != nil {
			return storeErr("exists", parent, err)
		}
		if n > 0 || exists > 0 {
			break
		}
		grand, s := parentPath(parent)
		if err := r.client.SRem(ctx, indexKey(grand), s).Err(); err != nil {
			return storeErr("srem", grand, err)
		}
		parent = grand
	}
	return nil
}

// Push appends value under prefix with a time-ordered key
func (r *RedisRepo) Push(ctx context.Context, prefix string, value []byte) (string, error) {
	key := utils.GeneratePushKey()
	if err := r.Set(ctx, joinPath(prefix, key), value); err != nil {
		return "", err
	}
	return key, nil
}

// Children returns the immediate children of prefix sorted by key
func (r *RedisRepo) Children(ctx context.Context, prefix string) ([]Child, error) {
	members, err := r.client.SMembers(ctx, indexKey(prefix)).Result()
	if err != nil {
		return nil, storeErr("smembers", prefix, err)
	}
	sort.Strings(members)

	children := make([]Child, 0, len(members))
	for _, m := range members {
		raw, err := r.readNode(ctx, joinPath(prefix, m))
		if err != nil {
			return nil, err
		}
		if raw == nil {
			continue
		}
		children = append(children, Child{Key: m, Value: raw})
	}
	return children, nil
}

// Count returns the number of immediate children of prefix
func (r *RedisRepo) Count(ctx context.Context, prefix string) (int, error) {
	n, err := r.client.SCard(ctx, indexKey(prefix)).Result()
	if err != nil {
		return 0, storeErr("scard", prefix, err)
	}
	return int(n), nil
}

// Subscribe streams snapshots of path. Writes to path or anywhere beneath it
// trigger a fresh read; siblings sharing a name prefix do not.
func (r *RedisRepo) Subscribe(ctx context.Context, path string) (<-chan Snapshot, error) {
	ps := r.client.PSubscribe(ctx, channelName(path), channelName(path)+"/*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, storeErr("psubscribe", path, err)
	}

	s := newSubscriber(path)
	current, err := r.readNode(ctx, path)
	if err != nil {
		_ = ps.Close()
		return nil, err
	}
	s.offer(Snapshot{Path: path, Value: current})

	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				raw, err := r.readNode(ctx, path)
				if err != nil {
					utils.Warn("subscription read failed", map[string]any{"path": path, "error": err.Error()})
					continue
				}
				s.offer(Snapshot{Path: path, Value: raw})
			}
		}
	}()
	go s.pump(ctx, nil)

	return s.out, nil
}

// Connect opens a leased connection. The lease is renewed in the background
// until Close; a crashed holder's lease lapses and ReapExpired cleans up.
func (r *RedisRepo) Connect(ctx context.Context) (Connection, error) {
	c := &redisConn{id: utils.GenerateID(), repo: r}
	if err := c.renew(ctx); err != nil {
		return nil, err
	}

	hbCtx, cancel := context.WithCancel(context.Background())
	c.stop = cancel
	c.done = make(chan struct{})
	go c.heartbeat(hbCtx)
	return c, nil
}

// ReapResult counts what one ReapExpired pass cleaned up
type ReapResult struct {
	Connections int // lapsed connections claimed by this pass
	Removed     int // paths those connections had registered that still existed
}

// ReapExpired runs the disconnect removals of every connection whose lease
// has lapsed. Several processes may reap at once; ZREM decides the owner.
func (r *RedisRepo) ReapExpired(ctx context.Context) (ReapResult, error) {
	var res ReapResult
	max := fmt.Sprintf("%d", r.now().UnixMilli())
	ids, err := r.client.ZRangeByScore(ctx, connsKey, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return res, storeErr("zrangebyscore", connsKey, err)
	}

	for _, id := range ids {
		n, err := r.client.ZRem(ctx, connsKey, id).Result()
		if err != nil {
			return res, storeErr("zrem", connsKey, err)
		}
		if n == 0 {
			continue
		}
		res.Connections++
		removed, err := r.runCleanup(ctx, id)
		res.Removed += removed
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// RunReaper calls ReapExpired every interval until ctx is done
func (r *RedisRepo) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := r.ReapExpired(ctx)
			if res.Removed > 0 {
				metrics.PresenceEvents.WithLabelValues("disconnect").Add(float64(res.Removed))
			}
			if err != nil {
				utils.Error("reaper: failed to reap expired connections", map[string]any{"error": err.Error()})
				continue
			}
			if res.Connections > 0 {
				utils.Info("reaper: removed expired connections", map[string]any{
					"connections": res.Connections,
					"removed":     res.Removed,
				})
			}
		}
	}
}

// runCleanup removes every path connID registered and returns how many of
// them still existed
func (r *RedisRepo) runCleanup(ctx context.Context, connID string) (int, error) {
	paths, err := r.client.SMembers(ctx, connKey(connID)).Result()
	if err != nil {
		return 0, storeErr("smembers", connKey(connID), err)
	}
	removed := 0
	var errs []error
	for _, p := range paths {
		n, err := r.client.Exists(ctx, valueKey(p), indexKey(p)).Result()
		if err != nil {
			errs = append(errs, storeErr("exists", p, err))
			continue
		}
		if err := r.Remove(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		if n > 0 {
			removed++
		}
	}
	if err := r.client.Del(ctx, connKey(connID)).Err(); err != nil {
		errs = append(errs, storeErr("del", connKey(connID), err))
	}
	return removed, errors.Join(errs...)
}

type redisConn struct {
	id   string
	repo *RedisRepo

	stop context.CancelFunc
	done chan struct{}
	once sync.Once
}

func (c *redisConn) ID() string { return c.id }

func (c *redisConn) renew(ctx context.Context) error {
	deadline := c.repo.now().Add(c.repo.leaseTTL).UnixMilli()
	err := c.repo.client.ZAdd(ctx, connsKey, redis.Z{Score: float64(deadline), Member: c.id}).Err()
	if err != nil {
		return storeErr("zadd", connsKey, err)
	}
	return nil
}

func (c *redisConn) heartbeat(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.repo.leaseTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.renew(ctx); err != nil && ctx.Err() == nil {
				utils.Warn("connection lease renewal failed", map[string]any{"conn_id": c.id, "error": err.Error()})
			}
		}
	}
}

// halt stops lease renewal without cleaning up, the way a crashed process would
func (c *redisConn) halt() {
	c.stop()
	<-c.done
}

func (c *redisConn) OnDisconnectRemove(ctx context.Context, path string) error {
	if err := c.repo.client.SAdd(ctx, connKey(c.id), path).Err(); err != nil {
		return storeErr("sadd", connKey(c.id), err)
	}
	return nil
}

func (c *redisConn) CancelOnDisconnect(ctx context.Context, path string) error {
	if err := c.repo.client.SRem(ctx, connKey(c.id), path).Err(); err != nil {
		return storeErr("srem", connKey(c.id), err)
	}
	return nil
}

func (c *redisConn) Close() error {
	var err error
	c.once.Do(func() {
		c.halt()
		ctx := context.Background()
		if zerr := c.repo.client.ZRem(ctx, connsKey, c.id).Err(); zerr != nil {
			err = storeErr("zrem", connsKey, zerr)
			return
		}
		_, err = c.repo.runCleanup(ctx, c.id)
	})
	return err
}

var _ RealtimeDB = (*RedisRepo)(nil)
var _ RealtimeDB = (*MemoryRepo)(nil)
