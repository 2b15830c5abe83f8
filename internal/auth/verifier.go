package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrUnknownKey     = errors.New("signing key not found")
	ErrKeyFetchDenied = errors.New("key fetch rate limit exceeded")
)

const (
	defaultFetchLimit  = 10
	defaultFetchWindow = time.Minute
	defaultHTTPTimeout = 10 * time.Second
)

// Identity is the verified, ephemeral identity attached to a connection.
// It lives exactly as long as the socket that produced it.
type Identity struct {
	UserID string
	Email  string
}

// jwksDocument mirrors the key set served by the identity provider.
type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Verifier validates bearer tokens against the identity provider's signing
// keys. Fetched keys are cached by kid; cache misses trigger a JWKS fetch
// guarded by a sliding-window limiter so key rotation cannot turn into a
// request storm against the provider. The verifier is an explicit injected
// component with no package-level state.
type Verifier struct {
	issuer  string
	jwksURL string
	client  *http.Client
	logger  *slog.Logger

	mu      sync.Mutex
	keys    map[string]*rsa.PublicKey
	fetches []time.Time

	fetchLimit  int
	fetchWindow time.Duration
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithJWKSURL overrides the derived JWKS endpoint.
func WithJWKSURL(url string) VerifierOption {
	return func(v *Verifier) { v.jwksURL = url }
}

// WithFetchLimit bounds JWKS fetches to limit per window.
func WithFetchLimit(limit int, window time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.fetchLimit = limit
		v.fetchWindow = window
	}
}

// WithHTTPClient substitutes the HTTP client used for key fetches.
func WithHTTPClient(client *http.Client) VerifierOption {
	return func(v *Verifier) { v.client = client }
}

// NewVerifier builds a verifier for the given OIDC issuer. The JWKS URL
// defaults to the Keycloak realm layout under the issuer.
func NewVerifier(issuer string, logger *slog.Logger, opts ...VerifierOption) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Verifier{
		issuer:      issuer,
		jwksURL:     issuer + "/protocol/openid-connect/certs",
		client:      &http.Client{Timeout: defaultHTTPTimeout},
		logger:      logger,
		keys:        make(map[string]*rsa.PublicKey),
		fetchLimit:  defaultFetchLimit,
		fetchWindow: defaultFetchWindow,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks signature, algorithm, issuer and expiry, and returns the
// verified identity. Every failure mode, including key-fetch failures,
// comes back as an ordinary error so the caller can uniformly reject the
// connection.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: no kid header", ErrInvalidToken)
		}
		return v.signingKey(ctx, kid)
	})
	if err != nil {
		v.logger.Warn("token verification failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: no subject claim", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)

	return &Identity{UserID: sub, Email: email}, nil
}

// signingKey returns the cached key for kid, fetching the key set on a miss
// when the rate limiter allows it.
func (v *Verifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	if key, ok := v.keys[kid]; ok {
		v.mu.Unlock()
		return key, nil
	}

	if !v.allowFetchLocked() {
		v.mu.Unlock()
		v.logger.Warn("jwks fetch denied by rate limit", "kid", kid)
		return nil, ErrKeyFetchDenied
	}
	v.mu.Unlock()

	doc, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			v.logger.Warn("skipping unparsable jwks key", "kid", k.Kid, "error", err)
			continue
		}
		v.keys[k.Kid] = pub
	}

	key, ok := v.keys[kid]
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// allowFetchLocked records and admits a fetch within the sliding window.
// Caller holds v.mu.
func (v *Verifier) allowFetchLocked() bool {
	now := time.Now()
	cutoff := now.Add(-v.fetchWindow)
	recent := v.fetches[:0]
	for _, t := range v.fetches {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	v.fetches = recent
	if len(v.fetches) >= v.fetchLimit {
		return false
	}
	v.fetches = append(v.fetches, now)
	return true
}

func (v *Verifier) fetchKeys(ctx context.Context) (*jwksDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("jwks decode: %w", err)
	}
	return &doc, nil
}

func (k *jwksKey) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, errors.New("zero exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
