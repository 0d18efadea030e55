package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/okian/scorekeep/internal/domain/password"
)

// Claims is the payload of a locally signed session token.
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

type localAccount struct {
	email string
	hash  string
}

// LocalProvider keeps identities in memory and signs HS256 tokens. It is
// meant for development and tests where no Firebase project exists.
type LocalProvider struct {
	mu      sync.Mutex
	byUID   map[string]localAccount
	byEmail map[string]string
	secret  []byte
	issuer  string
	ttl     time.Duration
	hasher  *password.Hasher
	now     func() time.Time
	newUID  func() string
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithIssuer sets the iss claim.
func WithIssuer(iss string) LocalOption {
	return func(p *LocalProvider) {
		if iss != "" {
			p.issuer = iss
		}
	}
}

// WithTTL sets token lifetime.
func WithTTL(ttl time.Duration) LocalOption {
	return func(p *LocalProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithHasher sets the password hasher for stored credentials.
func WithHasher(h *password.Hasher) LocalOption {
	return func(p *LocalProvider) {
		if h != nil {
			p.hasher = h
		}
	}
}

// WithNow sets the clock used for token timestamps.
func WithNow(now func() time.Time) LocalOption {
	return func(p *LocalProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewLocalProvider creates an in-memory provider signing with secret.
func NewLocalProvider(secret string, opts ...LocalOption) (*LocalProvider, error) {
	if secret == "" {
		return nil, errors.New("local identity: empty token secret")
	}
	p := &LocalProvider{
		byUID:   make(map[string]localAccount),
		byEmail: make(map[string]string),
		secret:  []byte(secret),
		issuer:  "scorekeep",
		ttl:     time.Hour,
		hasher:  password.NewHasher(0),
		now:     time.Now,
		newUID:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// CreateUser registers email with a hashed password.
func (p *LocalProvider) CreateUser(ctx context.Context, email, pass string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || pass == "" {
		return "", errors.New("local identity: email and password required")
	}
	hash, err := p.hasher.Hash(pass)
	if err != nil {
		return "", fmt.Errorf("local identity: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byEmail[email]; ok {
		return "", ErrEmailExists
	}
	uid := p.newUID()
	p.byUID[uid] = localAccount{email: email, hash: hash}
	p.byEmail[email] = uid
	return uid, nil
}

// CustomToken signs a token for a known uid.
func (p *LocalProvider) CustomToken(ctx context.Context, uid string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	_, ok := p.byUID[uid]
	p.mu.Unlock()
	if !ok {
		return "", ErrNotFound
	}

	now := p.now()
	claims := &Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// DeleteUser forgets uid.
func (p *LocalProvider) DeleteUser(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if acc, ok := p.byUID[uid]; ok {
		delete(p.byEmail, acc.email)
		delete(p.byUID, uid)
	}
	return nil
}
