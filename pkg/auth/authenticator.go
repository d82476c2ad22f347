package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bookslot/bookslot/internal/utils"
	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidToken = errors.New("invalid token")
var ErrInsufficientPermission = errors.New("insufficient permission")

const subjectPrefix = "uid-"

// SubscriberStore is the part of the subscriber repository the authenticator needs.
type SubscriberStore interface {
	GetSubscriber(ctx context.Context, id int) (subscriber.Subscriber, error)
	ConsumeTokenFloor(ctx context.Context, id int, iat time.Time, now time.Time) (bool, error)
}

type Authenticator struct {
	cfg   Config
	store SubscriberStore
	clock utils.Clock
}

func NewAuthenticator(cfg Config, store SubscriberStore, clock utils.Clock) *Authenticator {
	return &Authenticator{cfg: cfg, store: store, clock: clock}
}

// Authenticate resolves a bearer token to its subscriber. Every rejection is
// reported as ErrInvalidToken; only storage failures come back as other errors.
//
// A token carrying a jti is single use: its acceptance moves the subscriber's
// revocation floor to now, which also revokes every token issued earlier.
// Tokens issued within the same second as the consumption are compared at second
// resolution and may survive it, or lose a race against it.
func (a *Authenticator) Authenticate(ctx context.Context, token string, requireOneTimeUse bool) (subscriber.Subscriber, error) {
	claims, err := a.parse(token)
	if err != nil {
		log.Debugf("token rejected: %v", err)
		return subscriber.Subscriber{}, ErrInvalidToken
	}

	subscriberId, err := parseSubject(claims.Subject)
	if err != nil {
		log.Debugf("token rejected: %v", err)
		return subscriber.Subscriber{}, ErrInvalidToken
	}

	sub, err := a.store.GetSubscriber(ctx, subscriberId)
	if err != nil {
		if errors.Is(err, subscriber.ErrSubscriberNotFound) {
			log.Debugf("token rejected: subscriber %d does not exist", subscriberId)
			return subscriber.Subscriber{}, ErrInvalidToken
		}
		return subscriber.Subscriber{}, fmt.Errorf("failed to load subscriber: %w", err)
	}

	if sub.IsDeleted {
		log.Debugf("token rejected: subscriber %d is deleted", sub.Id)
		return subscriber.Subscriber{}, ErrInvalidToken
	}
	if sub.MinimumValidIatTime != nil {
		if claims.IssuedAt == nil {
			log.Debugf("token rejected: subscriber %d has a revocation floor and token has no iat", sub.Id)
			return subscriber.Subscriber{}, ErrInvalidToken
		}
		if sub.MinimumValidIatTime.Unix() > claims.IssuedAt.Unix() {
			log.Debugf("token rejected: issued before revocation floor of subscriber %d", sub.Id)
			return subscriber.Subscriber{}, ErrInvalidToken
		}
	}
	if requireOneTimeUse && claims.ID == "" {
		log.Debugf("token rejected: one-time token required")
		return subscriber.Subscriber{}, ErrInvalidToken
	}

	if claims.ID != "" {
		var iat time.Time
		if claims.IssuedAt != nil {
			iat = claims.IssuedAt.Time
		}
		now := a.clock.Now()
		consumed, err := a.store.ConsumeTokenFloor(ctx, sub.Id, iat, now)
		if err != nil {
			return subscriber.Subscriber{}, fmt.Errorf("failed to consume one-time token: %w", err)
		}
		if !consumed {
			log.Debugf("token rejected: one-time token of subscriber %d already used", sub.Id)
			return subscriber.Subscriber{}, ErrInvalidToken
		}
		sub.MinimumValidIatTime = &now
	}

	return sub, nil
}

// SubscriberOrNone is Authenticate for optional authentication: any failure yields None.
func (a *Authenticator) SubscriberOrNone(ctx context.Context, token string) mo.Option[subscriber.Subscriber] {
	if token == "" {
		return mo.None[subscriber.Subscriber]()
	}
	sub, err := a.Authenticate(ctx, token, false)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			log.Warnf("optional authentication failed: %v", err)
		}
		return mo.None[subscriber.Subscriber]()
	}
	return mo.Some(sub)
}

// RequireAdmin fails unless the subscriber's email ends with one of the allowed suffixes.
// An empty allow list admits nobody.
func (a *Authenticator) RequireAdmin(sub subscriber.Subscriber) error {
	email := strings.ToLower(sub.Email)
	for _, suffix := range a.cfg.adminAllowList {
		if strings.HasSuffix(email, strings.ToLower(suffix)) {
			return nil
		}
	}
	return ErrInsufficientPermission
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// Issue mints a token for the subscriber. One-time tokens carry a random jti.
func (a *Authenticator) Issue(subscriberId int, oneTime bool) (IssuedToken, error) {
	now := a.clock.Now()
	ttl := a.cfg.accessTokenTTL
	if oneTime {
		ttl = a.cfg.oneTimeTokenTTL
	}
	claims := jwt.RegisteredClaims{
		Subject:  subjectPrefix + strconv.Itoa(subscriberId),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	if oneTime {
		claims.ID = uuid.NewString()
	}
	signed, err := jwt.NewWithClaims(jwt.GetSigningMethod(a.cfg.algorithm), claims).SignedString(a.cfg.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("failed to sign token: %w", err)
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

func (a *Authenticator) IssueOneTime(subscriberId int) (string, error) {
	issued, err := a.Issue(subscriberId, true)
	if err != nil {
		return "", err
	}
	return issued.Token, nil
}

func (a *Authenticator) parse(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.cfg.secret, nil
	},
		jwt.WithValidMethods([]string{a.cfg.algorithm}),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseSubject(sub string) (int, error) {
	if sub == "" {
		return 0, fmt.Errorf("token has no subject")
	}
	id, err := strconv.Atoi(strings.TrimPrefix(sub, subjectPrefix))
	if err != nil {
		return 0, fmt.Errorf("unparsable subject %q", sub)
	}
	return id, nil
}
