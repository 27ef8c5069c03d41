package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func testManager(tokenURL string) *Manager {
	return &Manager{
		state: Unauthenticated,
		oauth: &oauth2.Config{
			ClientID: "netsocadmin",
			Endpoint: oauth2.Endpoint{TokenURL: tokenURL},
		},
		events: make(chan Event, 16),
		log:    zap.NewNop().Sugar(),
	}
}

func TestClaimsAccount(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		var claims Claims
		payload := `{
			"preferred_username": "ocanty",
			"email": "ocanty@netsoc.co",
			"realm_access": {"roles": ["netsoc_account"]}
		}`
		if err := json.Unmarshal([]byte(payload), &claims); err != nil {
			t.Fatal(err)
		}

		user, err := claims.Account()
		if err != nil {
			t.Fatal(err)
		}
		if user.Username != "ocanty" || user.Email != "ocanty@netsoc.co" {
			t.Errorf("unexpected identity %+v", user)
		}
		if !reflect.DeepEqual(user.Roles, []string{"netsoc_account"}) {
			t.Errorf("unexpected roles %v", user.Roles)
		}
		if !claims.HasRole("netsoc_account") {
			t.Error("expected HasRole to find the realm role")
		}
	})

	t.Run("MissingProfileScope", func(t *testing.T) {
		claims := Claims{Email: "ocanty@netsoc.co"}
		if _, err := claims.Account(); err == nil {
			t.Error("expected an error for a token without the profile scope")
		}
	})

	t.Run("MissingEmailScope", func(t *testing.T) {
		claims := Claims{PreferredUsername: "ocanty"}
		if _, err := claims.Account(); err == nil {
			t.Error("expected an error for a token without the email scope")
		}
	})
}

func TestAccessTokenWithoutSession(t *testing.T) {
	m := testManager("http://localhost/token")
	if _, err := m.AccessToken(context.Background()); err != ErrNoSession {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestSilentRenewWithoutRefreshToken(t *testing.T) {
	m := testManager("http://localhost/token")
	if err := m.SignInSilent(context.Background()); err != ErrNoSession {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestSilentRenewFailureClearsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	m := testManager(server.URL)
	m.state = Authenticated
	m.user = &User{Username: "ocanty"}
	m.token = &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh"}

	if err := m.SignInSilent(context.Background()); err == nil {
		t.Fatal("expected renew to fail")
	}

	if m.State() != Unauthenticated {
		t.Errorf("expected session to become unauthenticated, got %s", m.State())
	}
	if m.CurrentUser() != nil {
		t.Error("expected current user to be nil after failed renew")
	}
	if _, err := m.AccessToken(context.Background()); err != ErrNoSession {
		t.Errorf("expected ErrNoSession after failed renew, got %v", err)
	}
}

func TestSilentRenewCoalesced(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		time.Sleep(50 * time.Millisecond)
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	m := testManager(server.URL)
	m.state = Authenticated
	m.token = &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh"}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.SignInSilent(context.Background())
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("expected concurrent renews to coalesce into 1 request, got %d", got)
	}
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		Unauthenticated:          "unauthenticated",
		PendingInteractiveSignIn: "pending-interactive-sign-in",
		Authenticated:            "authenticated",
		PendingSilentRenew:       "pending-silent-renew",
		SignedOut:                "signed-out",
	}
	for state, expected := range states {
		if state.String() != expected {
			t.Errorf("expected %q, got %q", expected, state.String())
		}
	}
}

func TestEventsEmittedOnStateChange(t *testing.T) {
	m := testManager("http://localhost/token")
	m.setState(PendingInteractiveSignIn, nil, nil)
	m.setState(Authenticated, &User{Username: "ocanty"}, &oauth2.Token{AccessToken: "token"})

	first := <-m.Events()
	if first.State != PendingInteractiveSignIn {
		t.Errorf("expected pending state first, got %s", first.State)
	}
	second := <-m.Events()
	if second.State != Authenticated || second.User == nil || second.User.Username != "ocanty" {
		t.Errorf("unexpected authenticated event %+v", second)
	}
}
