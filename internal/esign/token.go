package esign

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	platformredis "rentalsign/internal/platform/redis"
	dErrors "rentalsign/pkg/domain-errors"
)

const (
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	// tokenCacheSkew keeps cached tokens from expiring mid-call.
	tokenCacheSkew = 60 * time.Second
)

// TokenSource exchanges an RS256 JWT assertion for a short-lived bearer
// token. Tokens are cached in Redis when available, otherwise in-process,
// keyed by the integration key so multiple instances share one grant.
type TokenSource struct {
	oauthHost      string
	integrationKey string
	userID         string
	privateKey     *rsa.PrivateKey
	expiry         time.Duration

	httpClient *http.Client
	cache      *platformredis.Client
	now        func() time.Time

	mu          sync.Mutex
	localToken  string
	localExpiry time.Time
}

// NewTokenSource parses the PEM private key and builds the source. Key parse
// failure is a construction error, not an auth_failed: it means the service
// is misconfigured, and main should refuse to start.
func NewTokenSource(oauthHost, integrationKey, userID, privateKeyPEM string, expiry time.Duration, cache *platformredis.Client) (*TokenSource, error) {
	key, err := parseRSAPrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return &TokenSource{
		oauthHost:      oauthHost,
		integrationKey: integrationKey,
		userID:         userID,
		privateKey:     key,
		expiry:         expiry,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		cache:          cache,
		now:            time.Now,
	}, nil
}

// Token returns a valid bearer token, fetching a fresh one when the cache is
// cold. Acquisition failure is terminal for the calling pipeline run.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	if token := ts.cached(ctx); token != "" {
		return token, nil
	}

	token, expiresIn, err := ts.exchange(ctx)
	if err != nil {
		return "", err
	}
	ts.store(ctx, token, expiresIn)
	return token, nil
}

func (ts *TokenSource) cacheKey() string {
	return "esign:token:" + ts.integrationKey
}

func (ts *TokenSource) cached(ctx context.Context) string {
	if ts.cache != nil {
		token, err := ts.cache.Get(ctx, ts.cacheKey()).Result()
		if err == nil && token != "" {
			return token
		}
		return ""
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.localToken != "" && ts.now().Before(ts.localExpiry) {
		return ts.localToken
	}
	return ""
}

func (ts *TokenSource) store(ctx context.Context, token string, expiresIn time.Duration) {
	ttl := expiresIn - tokenCacheSkew
	if ttl <= 0 {
		return
	}
	if ts.cache != nil {
		// Cache write failure only costs an extra exchange next call.
		_ = ts.cache.Set(ctx, ts.cacheKey(), token, ttl).Err()
		return
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.localToken = token
	ts.localExpiry = ts.now().Add(ttl)
}

// exchange performs the assertion grant against the provider's OAuth host.
func (ts *TokenSource) exchange(ctx context.Context) (string, time.Duration, error) {
	now := ts.now()
	claims := jwt.MapClaims{
		"iss":   ts.integrationKey,
		"sub":   ts.userID,
		"aud":   ts.oauthHost,
		"iat":   now.Unix(),
		"exp":   now.Add(ts.expiry).Unix(),
		"scope": "signature impersonation",
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.privateKey)
	if err != nil {
		return "", 0, dErrors.Wrap(dErrors.CodeAuthFailed, "sign token assertion", err)
	}

	form := url.Values{
		"grant_type": {jwtBearerGrant},
		"assertion":  {assertion},
	}
	endpoint := "https://" + ts.oauthHost + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, dErrors.Wrap(dErrors.CodeAuthFailed, "build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", 0, dErrors.Wrap(dErrors.CodeAuthFailed, "token exchange failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return "", 0, dErrors.New(dErrors.CodeAuthFailed,
			fmt.Sprintf("token exchange returned status %d", resp.StatusCode))
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", 0, dErrors.New(dErrors.CodeAuthFailed, "token response unreadable")
	}
	expiresIn := ts.expiry
	if tr.ExpiresIn > 0 {
		expiresIn = time.Duration(tr.ExpiresIn) * time.Second
	}
	return tr.AccessToken, expiresIn, nil
}

func parseRSAPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is not RSA")
	}
	return key, nil
}
