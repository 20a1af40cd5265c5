// internal/lookup/evegate.go
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/signalnine/vintel/internal/cache"
)

// ErrCharacterNotFound is returned for a name the game does not know
var ErrCharacterNotFound = errors.New("character not found")

// Player existence as stored in the playernames table
const (
	PlayerError     = -1
	PlayerNotExists = 0
	PlayerExists    = 1
)

const (
	idTTL      = 365 * 24 * time.Hour
	historyTTL = 24 * time.Hour
	avatarSize = 32
)

// EveGate talks to the public character services: name/id resolution,
// employment history and portraits. Answers are cached when a cache is
// set.
type EveGate struct {
	esiURL   string
	imageURL string
	cache    *cache.Cache
	client   *http.Client
}

// NewEveGate returns a client for the given API and image servers. c may
// be nil.
func NewEveGate(esiURL, imageURL string, c *cache.Cache) *EveGate {
	return &EveGate{
		esiURL:   strings.TrimSuffix(esiURL, "/"),
		imageURL: strings.TrimSuffix(imageURL, "/"),
		cache:    c,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
}

// CharacterIDs resolves character names to ids. Names match without
// regard to case and come back keyed as the caller spelled them. Unknown
// names are left out of the result.
func (g *EveGate) CharacterIDs(ctx context.Context, names []string) (map[string]int64, error) {
	ids := make(map[string]int64)
	requested := make(map[string]string)
	var missing []string
	for _, name := range names {
		if v, ok := g.cached(idKey(name)); ok {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				ids[name] = id
				continue
			}
		}
		requested[strings.ToLower(name)] = name
		missing = append(missing, name)
	}
	if len(missing) == 0 {
		return ids, nil
	}

	var resp struct {
		Characters []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"characters"`
	}
	if err := g.post(ctx, "/universe/ids/", missing, &resp); err != nil {
		return nil, fmt.Errorf("resolve names: %w", err)
	}
	for _, c := range resp.Characters {
		name, ok := requested[strings.ToLower(c.Name)]
		if !ok {
			name = c.Name
		}
		ids[name] = c.ID
		g.store(idKey(name), strconv.FormatInt(c.ID, 10), idTTL)
	}
	return ids, nil
}

func idKey(name string) string {
	return "id_name_" + strings.ToLower(name)
}

// CharacterID resolves a single name
func (g *EveGate) CharacterID(ctx context.Context, name string) (int64, error) {
	ids, err := g.CharacterIDs(ctx, []string{name})
	if err != nil {
		return 0, err
	}
	id, ok := ids[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrCharacterNotFound)
	}
	return id, nil
}

// Names resolves ids (of characters or corporations) to names
func (g *EveGate) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string)
	var missing []int64
	for _, id := range ids {
		if v, ok := g.cached("name_id_" + strconv.FormatInt(id, 10)); ok {
			names[id] = v
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return names, nil
	}

	var resp []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := g.post(ctx, "/universe/names/", missing, &resp); err != nil {
		return nil, fmt.Errorf("resolve ids: %w", err)
	}
	for _, r := range resp {
		names[r.ID] = r.Name
		g.store("name_id_"+strconv.FormatInt(r.ID, 10), r.Name, idTTL)
	}
	return names, nil
}

// CorporationHistory returns the corporation ids a character was
// employed by, most recent first
func (g *EveGate) CorporationHistory(ctx context.Context, charID int64) ([]int64, error) {
	key := "corphistory_id_" + strconv.FormatInt(charID, 10)
	if v, ok := g.cached(key); ok {
		var ids []int64
		if err := json.Unmarshal([]byte(v), &ids); err == nil {
			return ids, nil
		}
	}

	var resp []struct {
		CorporationID int64 `json:"corporation_id"`
		RecordID      int64 `json:"record_id"`
	}
	path := fmt.Sprintf("/characters/%d/corporationhistory/", charID)
	if err := g.get(ctx, g.esiURL+path, &resp); err != nil {
		return nil, fmt.Errorf("corporation history: %w", err)
	}

	sort.Slice(resp, func(i, j int) bool { return resp[i].RecordID > resp[j].RecordID })
	ids := make([]int64, 0, len(resp))
	for _, r := range resp {
		ids = append(ids, r.CorporationID)
	}
	if data, err := json.Marshal(ids); err == nil {
		g.store(key, string(data), historyTTL)
	}
	return ids, nil
}

// Avatar downloads the small portrait of a character
func (g *EveGate) Avatar(ctx context.Context, charname string) ([]byte, error) {
	id, err := g.CharacterID(ctx, charname)
	if err != nil {
		if errors.Is(err, ErrCharacterNotFound) {
			g.setPlayer(charname, PlayerNotExists)
		}
		return nil, err
	}
	g.setPlayer(charname, PlayerExists)

	u := fmt.Sprintf("%s/characters/%d/portrait?size=%d", g.imageURL, id, avatarSize)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("portrait: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// PlayerStatus reports whether a character exists, asking the API only
// when the answer is not cached
func (g *EveGate) PlayerStatus(ctx context.Context, charname string) int {
	if g.cache != nil {
		if status, ok, err := g.cache.GetPlayername(charname); err == nil && ok {
			return status
		}
	}
	_, err := g.CharacterID(ctx, charname)
	switch {
	case err == nil:
		g.setPlayer(charname, PlayerExists)
		return PlayerExists
	case errors.Is(err, ErrCharacterNotFound):
		g.setPlayer(charname, PlayerNotExists)
		return PlayerNotExists
	}
	log.Printf("Player lookup for %s failed: %v", charname, err)
	return PlayerError
}

func (g *EveGate) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", g.esiURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *EveGate) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *EveGate) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *EveGate) cached(key string) (string, bool) {
	if g.cache == nil {
		return "", false
	}
	v, ok, err := g.cache.Get(key, false)
	if err != nil {
		log.Printf("Cache read %s failed: %v", key, err)
		return "", false
	}
	return v, ok
}

func (g *EveGate) store(key, value string, ttl time.Duration) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Put(key, value, ttl); err != nil {
		log.Printf("Cache write %s failed: %v", key, err)
	}
}

func (g *EveGate) setPlayer(name string, status int) {
	if g.cache == nil {
		return
	}
	if err := g.cache.PutPlayername(name, status); err != nil {
		log.Printf("Cache write player %s failed: %v", name, err)
	}
}
