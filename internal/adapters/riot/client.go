// Package riot implements the upstream API client used by the aggregation
// pipeline. It speaks to two hosts: the regional host for match-v5 and the
// platform host for summoner-v4 and league-v4. All calls share one outbound
// token bucket and a bounded retry loop that honors Retry-After.
package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/zerox80/riftstats/internal/domain/model"
	"github.com/zerox80/riftstats/pkg/logger"
	"github.com/zerox80/riftstats/pkg/metrics"
)

const (
	defaultMaxAttempts = 4
	defaultBaseBackoff = 500 * time.Millisecond
	defaultHTTPTimeout = 15 * time.Second
	tokenHeader        = "X-Riot-Token"
)

// Sleeper waits for the given duration or until the context is canceled.
// Tests inject a no-op sleeper to keep backoff paths fast.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client is the upstream API client.
type Client struct {
	httpClient  *http.Client
	regionalURL string
	platformURL string
	apiKey      string
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	sleep       Sleeper
	log         logger.Logger
}

// NewClient creates a client for the given hosts. The API key is attached
// to every request; the limiter defaults to the public development quota
// (100 requests per 120 seconds) unless overridden.
func NewClient(regionalURL, platformURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		regionalURL: strings.TrimRight(regionalURL, "/"),
		platformURL: strings.TrimRight(platformURL, "/"),
		apiKey:      apiKey,
		limiter:     rate.NewLimiter(rate.Every(120*time.Second/100), 100),
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		sleep:       defaultSleeper,
		log:         logger.Named("riot"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MatchIDsByPUUID returns match ids for a player, newest first. A queueID
// of zero omits the queue filter.
func (c *Client) MatchIDsByPUUID(ctx context.Context, puuid string, queueID, start, count int) ([]string, error) {
	q := url.Values{}
	q.Set("start", strconv.Itoa(start))
	q.Set("count", strconv.Itoa(count))
	if queueID > 0 {
		q.Set("queue", strconv.Itoa(queueID))
	}
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?%s",
		c.regionalURL, url.PathEscape(puuid), q.Encode())

	var ids []string
	if err := c.getJSON(ctx, endpoint, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// MatchDetail fetches the full match payload for one match id.
func (c *Client) MatchDetail(ctx context.Context, matchID string) (*model.Match, error) {
	endpoint := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalURL, url.PathEscape(matchID))

	start := time.Now()
	var m model.Match
	if err := c.getJSON(ctx, endpoint, &m); err != nil {
		return nil, err
	}
	metrics.RecordMatchFetched()
	metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	return &m, nil
}

// EntriesByQueueTierDivision returns one page of the ranked ladder for a
// queue/tier/division triple. Pages are 1-based; an empty slice marks the
// end of the ladder.
func (c *Client) EntriesByQueueTierDivision(ctx context.Context, queue, tier, division string, page int) ([]model.LeagueEntry, error) {
	endpoint := fmt.Sprintf("%s/lol/league/v4/entries/%s/%s/%s?page=%d",
		c.platformURL, url.PathEscape(queue), url.PathEscape(tier), url.PathEscape(division), page)

	var entries []model.LeagueEntry
	if err := c.getJSON(ctx, endpoint, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SummonerByID resolves a summoner record (and thereby a PUUID) from an
// encrypted summoner id.
func (c *Client) SummonerByID(ctx context.Context, summonerID string) (*model.Summoner, error) {
	endpoint := fmt.Sprintf("%s/lol/summoner/v4/summoners/%s", c.platformURL, url.PathEscape(summonerID))

	var s model.Summoner
	if err := c.getJSON(ctx, endpoint, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LeagueEntriesByPUUID returns all current ladder entries for a player.
func (c *Client) LeagueEntriesByPUUID(ctx context.Context, puuid string) ([]model.LeagueEntry, error) {
	endpoint := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.platformURL, url.PathEscape(puuid))

	var entries []model.LeagueEntry
	if err := c.getJSON(ctx, endpoint, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// getJSON performs a rate-limited GET with bounded retries and decodes the
// body into out. 429 and 5xx responses are retried; 404 maps to ErrNotFound.
// Every attempt, retries included, debits the outbound token bucket.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	var lastStatus int
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.waitQuota(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("%w: build request: %w", ErrUpstream, err)
		}
		req.Header.Set(tokenHeader, c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt == c.maxAttempts {
				return fmt.Errorf("%w: %w", ErrUpstream, err)
			}
			c.log.Warn(ctx, "transport error, retrying",
				logger.String("url", endpoint),
				logger.Int("attempt", attempt),
				logger.Error(err))
			metrics.RecordUpstreamRetry()
			if serr := c.sleep(ctx, c.backoffDelay(attempt, 0)); serr != nil {
				return serr
			}
			continue
		}

		body, status, rerr := drainBody(resp)
		if rerr != nil {
			return fmt.Errorf("%w: read body: %w", ErrUpstream, rerr)
		}
		lastStatus = status

		switch {
		case status == http.StatusOK:
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			return nil
		case status == http.StatusNotFound:
			metrics.RecordMatchNotFound()
			return ErrNotFound
		case status == http.StatusTooManyRequests || status >= 500:
			if attempt == c.maxAttempts {
				break
			}
			delay := c.backoffDelay(attempt, retryAfterSeconds(resp))
			c.log.Warn(ctx, "upstream busy, backing off",
				logger.String("url", endpoint),
				logger.Int("status", status),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay))
			metrics.RecordUpstreamRetry()
			if serr := c.sleep(ctx, delay); serr != nil {
				return serr
			}
			continue
		default:
			return fmt.Errorf("%w: status %d", ErrUpstream, status)
		}
		break
	}

	if lastStatus == http.StatusTooManyRequests {
		return fmt.Errorf("%w: gave up after %d attempts", ErrRateLimited, c.maxAttempts)
	}
	return fmt.Errorf("%w: status %d after %d attempts", ErrUpstream, lastStatus, c.maxAttempts)
}

// waitQuota blocks until the outbound token bucket grants a slot.
func (c *Client) waitQuota(ctx context.Context) error {
	if c.limiter.Allow() {
		return nil
	}
	metrics.RecordRateLimitWait()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// backoffDelay computes the wait before the next attempt. A Retry-After
// value from the server wins over the exponential schedule.
func (c *Client) backoffDelay(attempt int, retryAfterSec int) time.Duration {
	if retryAfterSec > 0 {
		return time.Duration(retryAfterSec) * time.Second
	}
	return c.baseBackoff << (attempt - 1)
}

// retryAfterSeconds parses the delta-seconds form of Retry-After.
// Returns zero when the header is absent or unparseable.
func retryAfterSeconds(resp *http.Response) int {
	raw := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	sec, err := strconv.Atoi(raw)
	if err != nil || sec < 0 {
		return 0
	}
	return sec
}

func drainBody(resp *http.Response) ([]byte, int, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
