// internal/lookup/avatar.go
package lookup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/signalnine/vintel/internal/cache"
)

// AvatarFetcher downloads a character portrait
type AvatarFetcher interface {
	Avatar(ctx context.Context, charname string) ([]byte, error)
}

// PlayerChecker is implemented by fetchers that can tell when a name
// belongs to no character at all
type PlayerChecker interface {
	PlayerStatus(ctx context.Context, charname string) int
}

// AvatarRequest is one queued fetch
type AvatarRequest struct {
	ID       string
	Charname string
}

// AvatarResult carries the portrait or the reason there is none
type AvatarResult struct {
	ID       string
	Charname string
	Data     []byte
	Cached   bool
	Err      error
}

// AvatarQueue fetches portraits one at a time, cache first, keeping at
// least spacing between two outbound calls
type AvatarQueue struct {
	fetcher AvatarFetcher
	cache   *cache.Cache
	spacing time.Duration
	queue   *Queue[AvatarRequest]
	Results chan AvatarResult

	lastCall time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewAvatarQueue returns a queue fetching through fetcher. c may be nil.
func NewAvatarQueue(fetcher AvatarFetcher, c *cache.Cache, spacing time.Duration) *AvatarQueue {
	return &AvatarQueue{
		fetcher: fetcher,
		cache:   c,
		spacing: spacing,
		queue:   NewQueue[AvatarRequest](),
		Results: make(chan AvatarResult, 64),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Submit enqueues a fetch. With clearCache the cached portrait is dropped
// first so the fetch goes out to the service.
func (q *AvatarQueue) Submit(charname string, clearCache bool) string {
	if clearCache && q.cache != nil {
		if err := q.cache.RemoveAvatar(charname); err != nil {
			log.Printf("Drop avatar of %s failed: %v", charname, err)
		}
	}
	req := AvatarRequest{ID: ulid.Make().String(), Charname: charname}
	q.queue.Put(req)
	return req.ID
}

// Run processes requests until ctx is cancelled
func (q *AvatarQueue) Run(ctx context.Context) error {
	for {
		req, err := q.queue.Get(ctx)
		if err != nil {
			return nil
		}

		res := q.process(ctx, req)
		select {
		case q.Results <- res:
		case <-ctx.Done():
			return nil
		}
	}
}

func (q *AvatarQueue) process(ctx context.Context, req AvatarRequest) AvatarResult {
	res := AvatarResult{ID: req.ID, Charname: req.Charname}

	if q.cache != nil {
		data, ok, err := q.cache.GetAvatar(req.Charname)
		if err != nil {
			log.Printf("Cache read avatar %s failed: %v", req.Charname, err)
		} else if ok {
			res.Data = data
			res.Cached = true
			return res
		}
	}

	if wait := q.spacing - q.now().Sub(q.lastCall); wait > 0 && !q.lastCall.IsZero() {
		if err := q.sleep(ctx, wait); err != nil {
			res.Err = err
			return res
		}
	}

	// names already known not to exist are not fetched again
	if pc, ok := q.fetcher.(PlayerChecker); ok {
		if pc.PlayerStatus(ctx, req.Charname) == PlayerNotExists {
			q.lastCall = q.now()
			res.Err = fmt.Errorf("fetch avatar of %s: %w", req.Charname, ErrCharacterNotFound)
			return res
		}
	}

	data, err := q.fetcher.Avatar(ctx, req.Charname)
	q.lastCall = q.now()
	if err != nil {
		res.Err = fmt.Errorf("fetch avatar of %s: %w", req.Charname, err)
		return res
	}

	res.Data = data
	if q.cache != nil {
		if err := q.cache.PutAvatar(req.Charname, data); err != nil {
			log.Printf("Cache write avatar %s failed: %v", req.Charname, err)
		}
	}
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
