package link

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/internal/utils"
	"github.com/golang-jwt/jwt/v5"
)

// Signer issues subscriber links of the form <base>/<username>/<token>, where the
// token is a JWT whose subject is the username. It uses its own secret so that
// links can never be replayed as bearer tokens.
type Signer struct {
	secret  []byte
	ttl     time.Duration
	baseUrl string
	clock   utils.Clock
}

func NewSigner(cfg config.Auth, baseUrl string, clock utils.Clock) (*Signer, error) {
	if cfg.SignedUrlSecret == "" {
		return nil, fmt.Errorf("signed url secret is not configured")
	}
	if cfg.SignedUrlSecret == cfg.JwtSecret {
		return nil, fmt.Errorf("signed url secret must differ from the jwt secret")
	}
	return &Signer{
		secret:  []byte(cfg.SignedUrlSecret),
		ttl:     cfg.SignedUrlTTL,
		baseUrl: strings.TrimRight(baseUrl, "/"),
		clock:   clock,
	}, nil
}

func (s *Signer) Sign(username string) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:  username,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign link: %w", err)
	}
	return s.baseUrl + "/" + url.PathEscape(username) + "/" + token, nil
}

// Verify returns the username a link was signed for.
func (s *Signer) Verify(rawUrl string) (string, error) {
	username, token, err := lastSegments(rawUrl)
	if err != nil {
		return "", err
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", fmt.Errorf("link signature is not valid")
	}
	if claims.Subject == "" || claims.Subject != username {
		return "", fmt.Errorf("link was signed for %q, not %q", claims.Subject, username)
	}
	return username, nil
}

// lastSegments returns the two last path segments of a link, unescaped.
func lastSegments(rawUrl string) (string, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawUrl))
	if err != nil {
		return "", "", fmt.Errorf("malformed link: %w", err)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 {
		return "", "", fmt.Errorf("link %q has too few path segments", rawUrl)
	}
	first, last := segments[len(segments)-2], segments[len(segments)-1]
	if first == "" || last == "" {
		return "", "", fmt.Errorf("link %q has empty path segments", rawUrl)
	}
	return first, last, nil
}
