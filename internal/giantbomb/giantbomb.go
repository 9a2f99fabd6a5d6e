package giantbomb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/common"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://www.giantbomb.com/api"

const ROUTE_SEARCH = "/search"

const (
	DefaultSearchLimit     = 10
	MaxSearchLimit         = 25 // options in a discord select menu
	DefaultRequestsPerHour = 200
	DefaultCacheTTL        = 10 * time.Minute
	userAgent              = "Discord Game Club Bot"
)

var (
	ErrUpstreamUnavailable = errors.New("game search is unavailable")
	ErrEmptyQuery          = errors.New("empty search query")
)

type Options struct {
	APIKey          string
	BaseURL         string
	RequestsPerHour int
	CacheTTL        time.Duration
	HTTPClient      *http.Client
}

type cachedSearch struct {
	games     []Game
	stopwatch common.Stopwatch
}

// Client searches the Giant Bomb catalogue. Requests go through the rate limited
// proxy and results are cached per query for a while
type Client struct {
	apiKey   string
	baseURL  string
	proxy    *common.Proxy
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]*cachedSearch
}

func NewClient(options Options) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.RequestsPerHour <= 0 {
		options.RequestsPerHour = DefaultRequestsPerHour
	}
	if options.CacheTTL <= 0 {
		options.CacheTTL = DefaultCacheTTL
	}
	restrictions := []common.Restriction{{Requests: options.RequestsPerHour, Duration: time.Hour}}
	return &Client{
		apiKey:   options.APIKey,
		baseURL:  strings.TrimRight(options.BaseURL, "/"),
		proxy:    common.NewProxy(map[string]string{"User-Agent": userAgent}, restrictions, options.HTTPClient),
		cacheTTL: options.CacheTTL,
		cache:    map[string]*cachedSearch{},
	}
}

// Configured reports whether an API key was provided
func (client *Client) Configured() bool {
	return client.apiKey != ""
}

// Search returns up to limit games matching the query
func (client *Client) Search(ctx context.Context, query string, limit int) ([]Game, error) {

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	// Check cache
	key := strings.ToLower(query) + "|" + strconv.Itoa(limit)
	if games, ok := client.cached(key); ok {
		log.Debug().Msg(fmt.Sprintf("Search for %q served from the cache", query))
		return games, nil
	}

	// Request. Searches are answered interactively, so they never queue behind the limiter
	log.Info().Msg(fmt.Sprintf("Searching Giant Bomb for %q", query))
	data, err := client.proxy.Request(ctx, client.searchURL(query, limit), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	// Decode
	games, err := UnmarshalSearch(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if len(games) > limit {
		games = games[:limit]
	}
	log.Debug().Msg(fmt.Sprintf("Found %d games for %q", len(games), query))

	// Update cache
	client.store(key, games)
	return games, nil
}

func (client *Client) searchURL(query string, limit int) string {
	values := url.Values{}
	values.Set("api_key", client.apiKey)
	values.Set("format", "json")
	values.Set("query", query)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("resources", "game")
	return client.baseURL + ROUTE_SEARCH + "?" + values.Encode()
}

func (client *Client) cached(key string) ([]Game, bool) {
	client.mu.Lock()
	defer client.mu.Unlock()

	entry, ok := client.cache[key]
	if !ok {
		return nil, false
	}
	if stopped, _ := entry.stopwatch.Stopped(); stopped {
		delete(client.cache, key)
		return nil, false
	}
	return entry.games, true
}

func (client *Client) store(key string, games []Game) {
	client.mu.Lock()
	defer client.mu.Unlock()

	// Expired entries go first so the cache does not grow with every query ever made
	for k, entry := range client.cache {
		if stopped, _ := entry.stopwatch.Stopped(); stopped {
			delete(client.cache, k)
		}
	}
	entry := &cachedSearch{games: games, stopwatch: common.NewStopwatch(client.cacheTTL)}
	entry.stopwatch.Start()
	client.cache[key] = entry
}
