// internal/lookup/kos.go
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// KOS check outcomes
const (
	KOS       = "KOS"
	NotKOS    = "NOT kos"
	Unknown   = "?"
	RedByLast = "RED by last"
)

// Result states of a queued check
const (
	StateOK    = "ok"
	StateError = "error"
)

// ErrKOSUnavailable indicates all KOS endpoints are down
var ErrKOSUnavailable = errors.New("all KOS endpoints unavailable")

// CharacterLookup resolves what the KOS service does not know about a
// character: its id and the corporations it was employed by
type CharacterLookup interface {
	CharacterIDs(ctx context.Context, names []string) (map[string]int64, error)
	CorporationHistory(ctx context.Context, charID int64) ([]int64, error)
	Names(ctx context.Context, ids []int64) (map[int64]string, error)
}

// KOSClient queries a KOS list service with fallback support
type KOSClient struct {
	endpoints []string
	lookup    CharacterLookup
	client    *http.Client
}

// NewKOSClient creates a client trying endpoints in order. lookup may be
// nil, in which case characters in NPC corporations stay unknown.
func NewKOSClient(endpoints []string, lookup CharacterLookup) *KOSClient {
	return &KOSClient{
		endpoints: endpoints,
		lookup:    lookup,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
}

type kosEntity struct {
	Label    string `json:"label"`
	KOS      bool   `json:"kos"`
	Alliance *struct {
		KOS bool `json:"kos"`
	} `json:"alliance,omitempty"`
}

type kosCharacter struct {
	Label string    `json:"label"`
	KOS   bool      `json:"kos"`
	Corp  kosEntity `json:"corp"`
}

func (e kosEntity) allianceKOS() bool {
	return e.Alliance != nil && e.Alliance.KOS
}

// Check returns the KOS state of every name. A character the service
// lists in an NPC corporation, or does not list at all, is judged by the
// last player corporation it belonged to.
func (c *KOSClient) Check(ctx context.Context, names []string) (map[string]string, error) {
	var clean []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			clean = append(clean, n)
		}
	}
	results := make(map[string]string)
	if len(clean) == 0 {
		return results, nil
	}

	var multi struct {
		Results []kosCharacter `json:"results"`
	}
	params := url.Values{"c": {"json"}, "type": {"multi"}, "q": {strings.Join(clean, ",")}}
	if err := c.query(ctx, params, &multi); err != nil {
		return nil, err
	}

	listed := make(map[string]bool)
	var byLast []string
	for _, ch := range multi.Results {
		listed[strings.ToLower(ch.Label)] = true
		switch {
		case ch.KOS || ch.Corp.KOS || ch.Corp.allianceKOS():
			results[ch.Label] = KOS
		case !IsNPCCorp(ch.Corp.Label):
			results[ch.Label] = NotKOS
		default:
			byLast = append(byLast, ch.Label)
		}
	}
	for _, n := range clean {
		if !listed[strings.ToLower(n)] {
			byLast = append(byLast, n)
		}
	}

	if len(byLast) > 0 {
		if err := c.checkByLast(ctx, byLast, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// checkByLast looks up the most recent player corporation of each name
// and marks the name RED if that corporation is KOS
func (c *KOSClient) checkByLast(ctx context.Context, names []string, results map[string]string) error {
	for _, n := range names {
		results[n] = Unknown
	}
	if c.lookup == nil {
		return nil
	}

	ids, err := c.lookup.CharacterIDs(ctx, names)
	if err != nil {
		return err
	}

	history := make(map[string][]int64)
	var corpIDs []int64
	for _, n := range names {
		id, ok := ids[n]
		if !ok {
			continue
		}
		corps, err := c.lookup.CorporationHistory(ctx, id)
		if err != nil {
			return err
		}
		history[n] = corps
		corpIDs = append(corpIDs, corps...)
	}
	if len(corpIDs) == 0 {
		return nil
	}

	corpNames, err := c.lookup.Names(ctx, corpIDs)
	if err != nil {
		return err
	}

	lastCorp := make(map[string]string)
	for n, corps := range history {
		for _, id := range corps {
			if name, ok := corpNames[id]; ok && !IsNPCCorp(name) {
				lastCorp[n] = name
				break
			}
		}
	}

	corpKOS := make(map[string]bool)
	for _, corp := range lastCorp {
		if _, done := corpKOS[corp]; done {
			continue
		}
		kos, err := c.unitKOS(ctx, corp)
		if err != nil {
			return err
		}
		corpKOS[corp] = kos
	}

	for n, corp := range lastCorp {
		if corpKOS[corp] {
			results[n] = RedByLast
		}
	}
	return nil
}

func (c *KOSClient) unitKOS(ctx context.Context, corp string) (bool, error) {
	var unit struct {
		Results []kosEntity `json:"results"`
	}
	params := url.Values{"c": {"json"}, "type": {"unit"}, "q": {corp}}
	if err := c.query(ctx, params, &unit); err != nil {
		return false, err
	}
	for _, r := range unit.Results {
		if r.KOS || r.allianceKOS() {
			return true, nil
		}
	}
	return false, nil
}

// query tries each endpoint in order; returns ErrKOSUnavailable only if
// ALL fail
func (c *KOSClient) query(ctx context.Context, params url.Values, out interface{}) error {
	if len(c.endpoints) == 0 {
		return errors.New("no KOS endpoints configured")
	}

	var lastErr error
	for i, ep := range c.endpoints {
		err := c.tryEndpoint(ctx, ep, params, out)
		if err == nil {
			if i > 0 {
				log.Printf("KOS fallback: endpoint %d (%s) succeeded after %d failures", i+1, ep, i)
			}
			return nil
		}

		lastErr = err
		if isUnavailableErr(err) {
			log.Printf("KOS endpoint %d (%s) unavailable: %v, trying next...", i+1, ep, err)
			continue
		}
		return err
	}

	return fmt.Errorf("%w: %v", ErrKOSUnavailable, lastErr)
}

func (c *KOSClient) tryEndpoint(ctx context.Context, ep string, params url.Values, out interface{}) error {
	sep := "?"
	if strings.Contains(ep, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, "GET", ep+sep+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("connection failed: %w", err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusGatewayTimeout {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse KOS response: %w", err)
	}
	return nil
}

// isUnavailableErr checks if an error indicates a transient availability issue
func isUnavailableErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "connection") ||
		strings.Contains(s, "HTTP 502") ||
		strings.Contains(s, "HTTP 503") ||
		strings.Contains(s, "HTTP 504")
}

// IsUnavailable checks if the error indicates all KOS endpoints are down
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrKOSUnavailable)
}

// ResultToText renders check results grouped by state, one paragraph per
// state. NOT kos names are left out when onlyKOS is set.
func ResultToText(results map[string]string, onlyKOS bool) string {
	groups := make(map[string][]string)
	for name, state := range results {
		groups[state] = append(groups[state], name)
	}

	order := []string{KOS, RedByLast, Unknown}
	if !onlyKOS {
		order = append(order, NotKOS)
	}

	var paragraphs []string
	for _, state := range order {
		names := groups[state]
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		paragraphs = append(paragraphs, state+": "+strings.Join(names, ", "))
	}
	return strings.Join(paragraphs, "\n\n")
}

// HasKOS reports whether any result is hostile
func HasKOS(results map[string]string) bool {
	for _, state := range results {
		if state == KOS || state == RedByLast {
			return true
		}
	}
	return false
}

// KOSChecker is what the queue runs requests against
type KOSChecker interface {
	Check(ctx context.Context, names []string) (map[string]string, error)
}

// KOSRequest is one queued check. RequestType tells the consumer where
// it came from ("xxx" for chat requests).
type KOSRequest struct {
	ID          string
	Names       []string
	RequestType string
	OnlyKOS     bool
}

// KOSResult is delivered for every request, in submission order
type KOSResult struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Text        string `json:"text"`
	RequestType string `json:"request_type"`
	HasKOS      bool   `json:"has_kos"`
}

// KOSQueue serializes KOS checks on one goroutine
type KOSQueue struct {
	checker KOSChecker
	queue   *Queue[KOSRequest]
	Results chan KOSResult
}

// NewKOSQueue returns a queue running checks against checker
func NewKOSQueue(checker KOSChecker) *KOSQueue {
	return &KOSQueue{
		checker: checker,
		queue:   NewQueue[KOSRequest](),
		Results: make(chan KOSResult, 16),
	}
}

// Submit enqueues a check and returns its request id
func (q *KOSQueue) Submit(names []string, requestType string, onlyKOS bool) string {
	req := KOSRequest{
		ID:          ulid.Make().String(),
		Names:       names,
		RequestType: requestType,
		OnlyKOS:     onlyKOS,
	}
	q.queue.Put(req)
	return req.ID
}

// Run processes requests until ctx is cancelled
func (q *KOSQueue) Run(ctx context.Context) error {
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

func (q *KOSQueue) process(ctx context.Context, req KOSRequest) KOSResult {
	res := KOSResult{ID: req.ID, RequestType: req.RequestType}
	results, err := q.checker.Check(ctx, req.Names)
	if err != nil {
		log.Printf("KOS check %s failed: %v", req.ID, err)
		res.State = StateError
		res.Text = err.Error()
		return res
	}
	res.State = StateOK
	res.Text = ResultToText(results, req.OnlyKOS)
	res.HasKOS = HasKOS(results)
	return res
}
