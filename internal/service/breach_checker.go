package service

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1" // #nosec G505 - required by the range API, not used for secrecy
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"passchecker/internal/cache"
	"passchecker/internal/logging"
)

const (
	rangePrefixLen       = 5
	rangeCacheKeyPrefix  = "pwned:range:"
	maxRangeResponseSize = 2 << 20
)

// BreachResult reports whether a password appears in a breach corpus.
type BreachResult struct {
	IsPwned bool `json:"isPwned"`
	Count   int  `json:"count"`
}

// BreachChecker queries a Pwned Passwords compatible range API. Only the
// first five hex characters of the SHA-1 digest ever leave the process.
type BreachChecker struct {
	baseURL  string
	client   *http.Client
	cache    *cache.Client
	cacheTTL time.Duration
}

// NewBreachChecker creates a checker against baseURL (without trailing slash).
func NewBreachChecker(baseURL string, timeout time.Duration, cache *cache.Client, cacheTTL time.Duration) *BreachChecker {
	return &BreachChecker{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Check looks password up. It never fails: when the API cannot be reached
// the password is reported as not breached.
func (b *BreachChecker) Check(ctx context.Context, password string) BreachResult {
	sum := sha1.Sum([]byte(password)) // #nosec G401
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:rangePrefixLen], digest[rangePrefixLen:]

	body, err := b.fetchRange(ctx, prefix)
	if err != nil {
		logging.FromContext(ctx).Warn("breach lookup unavailable, failing open", "err", err)
		return BreachResult{}
	}
	return matchSuffix(body, suffix)
}

func (b *BreachChecker) fetchRange(ctx context.Context, prefix string) ([]byte, error) {
	key := rangeCacheKeyPrefix + prefix
	if data, _ := b.cache.Get(ctx, key); data != nil {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/range/"+prefix, nil)
	if err != nil {
		return nil, fmt.Errorf("build range request: %w", err)
	}
	req.Header.Set("Add-Padding", "true")
	req.Header.Set("User-Agent", "password-checker")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("range request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("range API returned status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRangeResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read range response: %w", err)
	}

	_ = b.cache.Set(ctx, key, body, b.cacheTTL)
	return body, nil
}

// matchSuffix scans SUFFIX:COUNT lines. Padding rows carry a zero count and
// never count as a hit.
func matchSuffix(body []byte, suffix string) BreachResult {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		hashSuffix, rawCount, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(hashSuffix, suffix) {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(rawCount))
		if err != nil || count <= 0 {
			return BreachResult{}
		}
		return BreachResult{IsPwned: true, Count: count}
	}
	return BreachResult{}
}
