// Package session owns the OIDC authentication lifecycle: interactive
// sign-in through the system browser, silent renewal with the refresh
// token, sign-out with revocation, and the current identity exposed to
// the rest of the application.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/UCCNetsoc/cloud/internal/config"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// State is the session lifecycle state.
type State int

const (
	Unauthenticated State = iota
	PendingInteractiveSignIn
	Authenticated
	PendingSilentRenew
	SignedOut
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case PendingInteractiveSignIn:
		return "pending-interactive-sign-in"
	case Authenticated:
		return "authenticated"
	case PendingSilentRenew:
		return "pending-silent-renew"
	case SignedOut:
		return "signed-out"
	default:
		return "unknown"
	}
}

// User is the identity extracted from a verified access token.
type User struct {
	Username string
	Email    string
	Roles    []string
	Expiry   time.Time
}

// Event is emitted on every state change so views can react.
type Event struct {
	State State
	User  *User
}

// ErrNoSession is returned when a token is requested while signed out.
var ErrNoSession = errors.New("not signed in")

// renewFraction of the token lifetime after which silent renew fires.
const renewFraction = 0.75

// Manager drives the session state machine. All methods are safe for
// concurrent use; at most one silent renew is in flight at a time.
type Manager struct {
	mu    sync.RWMutex
	state State
	user  *User
	token *oauth2.Token

	oauth      *oauth2.Config
	jwks       *keyfunc.JWKS
	issuer     string
	revocation string

	renew      singleflight.Group
	renewTimer *time.Timer

	events chan Event
	log    *zap.SugaredLogger

	// openBrowser is swappable for tests.
	openBrowser func(url string) error
}

// discoveryClaims are the extra provider metadata fields we need beyond
// what go-oidc surfaces directly.
type discoveryClaims struct {
	JWKSURI            string `json:"jwks_uri"`
	RevocationEndpoint string `json:"revocation_endpoint"`
}

// New discovers the identity provider and prepares the relying-party
// configuration. No network traffic happens after this until SignIn.
func New(ctx context.Context, cfg config.OIDC, log *zap.SugaredLogger) (*Manager, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Authority)
	if err != nil {
		return nil, fmt.Errorf("failed to discover identity provider: %w", err)
	}

	var discovery discoveryClaims
	if err := provider.Claims(&discovery); err != nil {
		return nil, fmt.Errorf("failed to read provider metadata: %w", err)
	}

	jwks, err := keyfunc.Get(discovery.JWKSURI, keyfunc.Options{
		Ctx:             ctx,
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(err error) {
			log.Warnw("failed to refresh identity provider keys", "error", err)
		},
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch identity provider keys: %w", err)
	}

	return &Manager{
		state: Unauthenticated,
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			Endpoint:    provider.Endpoint(),
			RedirectURL: fmt.Sprintf("http://localhost:%d/accounts/login/finish", cfg.RedirectPort),
			Scopes:      []string{oidc.ScopeOpenID, "profile", "email", "roles"},
		},
		jwks:        jwks,
		issuer:      cfg.Authority,
		revocation:  discovery.RevocationEndpoint,
		events:      make(chan Event, 16),
		log:         log,
		openBrowser: openBrowser,
	}, nil
}

// Events delivers a notification per state change. The channel is
// buffered; events are dropped rather than blocking the state machine if
// nobody is listening.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentUser returns the signed-in identity, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// Username implements api.Credentials.
func (m *Manager) Username() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return ""
	}
	return m.user.Username
}

// AccessToken implements api.Credentials. It renews the token first when
// it is within 30 seconds of expiry.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	if token == nil {
		return "", ErrNoSession
	}
	if time.Until(token.Expiry) > 30*time.Second {
		return token.AccessToken, nil
	}

	if err := m.SignInSilent(ctx); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return "", ErrNoSession
	}
	return m.token.AccessToken, nil
}

// SignIn runs the interactive authorization code flow: a loopback
// listener is started on the configured redirect port, the system
// browser is pointed at the authorization endpoint, and the returned
// code is exchanged with PKCE. A failure leaves the session
// unauthenticated; no retry is attempted.
func (m *Manager) SignIn(ctx context.Context) error {
	m.setState(PendingInteractiveSignIn, nil, nil)

	redirect, err := url.Parse(m.oauth.RedirectURL)
	if err != nil {
		m.setState(Unauthenticated, nil, nil)
		return err
	}

	listener, err := net.Listen("tcp", "localhost:"+redirect.Port())
	if err != nil {
		m.setState(Unauthenticated, nil, nil)
		return fmt.Errorf("failed to listen for the sign-in callback: %w", err)
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	type callback struct {
		code string
		err  error
	}
	callbacks := make(chan callback, 1)

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != redirect.Path {
			http.NotFound(w, r)
			return
		}
		query := r.URL.Query()
		switch {
		case query.Get("state") != state:
			callbacks <- callback{err: errors.New("callback state mismatch")}
			http.Error(w, "state mismatch", http.StatusBadRequest)
		case query.Get("error") != "":
			callbacks <- callback{err: fmt.Errorf("identity provider error: %s", query.Get("error"))}
			fmt.Fprintln(w, "Sign-in failed. You can close this window.")
		default:
			callbacks <- callback{code: query.Get("code")}
			fmt.Fprintln(w, "Signed in to Netsoc Cloud. You can close this window and return to the terminal.")
		}
	})}
	go server.Serve(listener)
	defer server.Close()

	authURL := m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	if err := m.openBrowser(authURL); err != nil {
		m.setState(Unauthenticated, nil, nil)
		return fmt.Errorf("failed to open the browser for sign-in: %w (visit %s manually)", err, authURL)
	}

	var cb callback
	select {
	case cb = <-callbacks:
	case <-ctx.Done():
		m.setState(Unauthenticated, nil, nil)
		return ctx.Err()
	}
	if cb.err != nil {
		m.setState(Unauthenticated, nil, nil)
		return cb.err
	}

	token, err := m.oauth.Exchange(ctx, cb.code, oauth2.VerifierOption(verifier))
	if err != nil {
		m.setState(Unauthenticated, nil, nil)
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	user, err := m.verifyAccessToken(token.AccessToken)
	if err != nil {
		m.setState(Unauthenticated, nil, nil)
		return err
	}

	m.setSession(token, user)
	m.log.Infow("signed in", "username", user.Username)
	return nil
}

// SignInSilent renews the session without user interaction using the
// refresh token. Concurrent calls are coalesced into one renewal. On
// failure the session becomes null and dependent views must treat the
// user as logged out.
func (m *Manager) SignInSilent(ctx context.Context) error {
	_, err, _ := m.renew.Do("renew", func() (interface{}, error) {
		return nil, m.renewOnce(ctx)
	})
	return err
}

func (m *Manager) renewOnce(ctx context.Context) error {
	m.mu.RLock()
	token := m.token
	m.mu.RUnlock()

	if token == nil || token.RefreshToken == "" {
		return ErrNoSession
	}

	m.setState(PendingSilentRenew, m.CurrentUser(), token)

	renewed, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken}).Token()
	if err != nil {
		m.log.Warnw("silent renew failed", "error", err)
		m.setState(Unauthenticated, nil, nil)
		return fmt.Errorf("silent renew failed: %w", err)
	}

	user, err := m.verifyAccessToken(renewed.AccessToken)
	if err != nil {
		m.setState(Unauthenticated, nil, nil)
		return err
	}

	m.setSession(renewed, user)
	return nil
}

// SignOut revokes the refresh token where the provider supports it,
// clears local state and leaves the session unauthenticated.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	token := m.token
	if m.renewTimer != nil {
		m.renewTimer.Stop()
		m.renewTimer = nil
	}
	m.mu.Unlock()

	if token != nil && token.RefreshToken != "" && m.revocation != "" {
		form := url.Values{
			"client_id": {m.oauth.ClientID},
			"token":     {token.RefreshToken},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.revocation, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if res, err := http.DefaultClient.Do(req); err != nil {
				m.log.Warnw("token revocation failed", "error", err)
			} else {
				res.Body.Close()
			}
		}
	}

	m.setState(SignedOut, nil, nil)
	m.setState(Unauthenticated, nil, nil)
	m.log.Info("signed out")
	return nil
}

// Close stops the renew timer and background key refreshing.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.renewTimer != nil {
		m.renewTimer.Stop()
		m.renewTimer = nil
	}
	m.mu.Unlock()
	m.jwks.EndBackground()
}

// verifyAccessToken checks the token's signature against the provider's
// JWKS and its issuer, then extracts the identity.
func (m *Manager) verifyAccessToken(raw string) (*User, error) {
	claims := new(Claims)
	if _, err := jwt.ParseWithClaims(raw, claims, m.jwks.Keyfunc); err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if !claims.VerifyIssuer(m.issuer, true) {
		return nil, fmt.Errorf("invalid access token: bad issuer %q", claims.Issuer)
	}
	return claims.Account()
}

// setSession installs a new token pair and schedules the next silent
// renew at a fraction of the token lifetime.
func (m *Manager) setSession(token *oauth2.Token, user *User) {
	m.mu.Lock()
	if m.renewTimer != nil {
		m.renewTimer.Stop()
	}
	lifetime := time.Until(token.Expiry)
	if lifetime > 0 {
		m.renewTimer = time.AfterFunc(time.Duration(float64(lifetime)*renewFraction), func() {
			if err := m.SignInSilent(context.Background()); err != nil {
				m.log.Warnw("scheduled renew failed", "error", err)
			}
		})
	}
	m.mu.Unlock()

	m.setState(Authenticated, user, token)
}

func (m *Manager) setState(state State, user *User, token *oauth2.Token) {
	m.mu.Lock()
	m.state = state
	m.user = user
	m.token = token
	m.mu.Unlock()

	// Never block the state machine on a slow consumer.
	select {
	case m.events <- Event{State: state, User: user}:
	default:
	}
}

// openBrowser points the user's browser at the given URL.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
