package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bookslot/bookslot/internal/config"
	"github.com/bookslot/bookslot/internal/rest"
	"github.com/bookslot/bookslot/internal/secret"
	"github.com/bookslot/bookslot/pkg/subscriber"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

type googleAuthRedirect struct {
	RedirectUrl string `json:"redirectUrl"`
}

// GoogleAuth runs the OAuth consent flow and keeps one token per subscriber.
type GoogleAuth struct {
	db          *pgxpool.Pool
	box         *secret.Box
	oauthConfig *oauth2.Config
	frontendUrl string
}

func NewGoogleAuth(db *pgxpool.Pool, box *secret.Box, cfg config.Application) *GoogleAuth {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Google.ClientId,
		ClientSecret: cfg.Google.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.Host + "/api/integrations/google/auth/callback",
		Scopes:       []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope},
	}
	return &GoogleAuth{db: db, box: box, oauthConfig: oauthConfig, frontendUrl: cfg.FrontendUrl}
}

// OAuthLogin godoc
// @Summary Start Google Calendar authorization
// @Tags Google
// @Produce json
// @Param finalUrl query string false "Where to send the browser afterwards"
// @Success 200 {object} googleAuthRedirect
// @Router /api/integrations/google/auth/login [get]
// @Security Bearer
func (g *GoogleAuth) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	subscriberId, err := subscriber.CurrentId(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusUnauthorized, "Invalid token", "")
		return
	}

	stateNonce := uuid.New().String()
	_, err = g.db.Exec(r.Context(), `INSERT INTO google_auth (subscriber_id, nonce) VALUES ($1, $2)
		ON CONFLICT (subscriber_id) DO UPDATE SET nonce = EXCLUDED.nonce`, subscriberId, stateNonce)
	if err != nil {
		log.Errorf("failed to store Google auth nonce for subscriber %d: %v", subscriberId, err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication", "")
		return
	}

	finalUrl := r.URL.Query().Get("finalUrl")
	if !g.isAllowedRedirect(finalUrl) {
		finalUrl = g.frontendUrl
	}

	log.Tracef("Redirecting to Google auth URL with nonce: %s", stateNonce)
	u := g.oauthConfig.AuthCodeURL(finalUrl+"|"+stateNonce, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	rest.WriteJSON(w, http.StatusOK, googleAuthRedirect{RedirectUrl: u})
}

// OAuthCallback godoc
// @Summary Google OAuth redirect target
// @Tags Google
// @Success 302 "Redirect to the frontend"
// @Router /api/integrations/google/auth/callback [get]
func (g *GoogleAuth) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.FormValue("code")
	state := r.FormValue("state")

	finalUrl, nonce, ok := strings.Cut(state, "|")
	if !ok || nonce == "" {
		rest.WriteError(w, http.StatusBadRequest, "Invalid OAuth state", "")
		return
	}
	if !g.isAllowedRedirect(finalUrl) {
		finalUrl = g.frontendUrl
	}

	token, err := g.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Errorf("unable to exchange code for token: %v", err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}

	if err := g.storeToken(r.Context(), nonce, token); err != nil {
		log.Error(err)
		http.Redirect(w, r, finalUrl+"?success=false", http.StatusFound)
		return
	}
	log.Debug("Successfully stored Google auth token for nonce: ", nonce)
	http.Redirect(w, r, finalUrl+"?success=true", http.StatusFound)
}

// OAuthLogout godoc
// @Summary Forget the stored Google authorization
// @Tags Google
// @Success 204 "No Content"
// @Router /api/integrations/google/auth/logout [delete]
// @Security Bearer
func (g *GoogleAuth) OAuthLogout(w http.ResponseWriter, r *http.Request) {
	subscriberId, err := subscriber.CurrentId(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusUnauthorized, "Invalid token", "")
		return
	}
	if err := g.Forget(r.Context(), subscriberId); err != nil {
		log.Error(err)
		rest.WriteError(w, http.StatusInternalServerError, "Failed to handle Google authentication", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Forget drops the stored Google authorization of a subscriber.
func (g *GoogleAuth) Forget(ctx context.Context, subscriberId int) error {
	if _, err := g.db.Exec(ctx, "DELETE FROM google_auth WHERE subscriber_id = $1", subscriberId); err != nil {
		return fmt.Errorf("failed to delete Google auth row for subscriber %d: %w", subscriberId, err)
	}
	return nil
}

// Client returns an authorized HTTP client, or nil when the subscriber never connected Google.
func (g *GoogleAuth) Client(ctx context.Context, subscriberId int) (*http.Client, error) {
	token, err := g.getToken(ctx, subscriberId)
	if err != nil {
		log.Error(err)
		return nil, err
	}
	if token == nil {
		return nil, nil
	}
	return g.oauthConfig.Client(context.Background(), token), nil
}

func (g *GoogleAuth) storeToken(ctx context.Context, nonce string, token *oauth2.Token) error {
	accessToken, err := g.box.Seal(token.AccessToken)
	if err != nil {
		return fmt.Errorf("unable to encrypt Google access token: %w", err)
	}
	refreshToken, err := g.box.Seal(token.RefreshToken)
	if err != nil {
		return fmt.Errorf("unable to encrypt Google refresh token: %w", err)
	}
	tag, err := g.db.Exec(ctx, "UPDATE google_auth SET access_token = $1, refresh_token = $2, expiry = $3 WHERE nonce = $4",
		accessToken, refreshToken, token.Expiry, nonce)
	if err != nil {
		return fmt.Errorf("unable to store Google auth token for nonce: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unknown Google auth nonce %s", nonce)
	}
	return nil
}

func (g *GoogleAuth) getToken(ctx context.Context, subscriberId int) (*oauth2.Token, error) {
	var (
		accessToken  string
		refreshToken string
		expiry       *time.Time
	)
	err := g.db.QueryRow(ctx, "SELECT access_token, refresh_token, expiry FROM google_auth WHERE subscriber_id = $1", subscriberId).
		Scan(&accessToken, &refreshToken, &expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google auth token: %w", err)
	}
	if accessToken == "" && refreshToken == "" {
		return nil, nil
	}

	token := &oauth2.Token{}
	if token.AccessToken, err = g.box.Open(accessToken); err != nil {
		return nil, err
	}
	if token.RefreshToken, err = g.box.Open(refreshToken); err != nil {
		return nil, err
	}
	if expiry != nil {
		token.Expiry = *expiry
	}
	return token, nil
}

// isAllowedRedirect keeps the post-consent redirect on the configured frontend.
func (g *GoogleAuth) isAllowedRedirect(target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	front, err := url.Parse(g.frontendUrl)
	if err != nil {
		return false
	}
	return u.Scheme == front.Scheme && u.Host == front.Host
}
