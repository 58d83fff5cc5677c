package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/rpc"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

// setupAuthServer wires AuthService and LedgerService behind the real JWT
// interceptors, as the server does.
func setupAuthServer(t *testing.T) (authClient, ledgerClient *rpc.Client) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	authPath, authHandler := NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, logger),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager)),
	)
	ledgerPath, ledgerHandler := NewLedgerServiceHandler(
		NewLedgerService(store, nil, nil, logger),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager)),
	)

	mux := http.NewServeMux()
	mux.Handle(authPath, authHandler)
	mux.Handle(ledgerPath, ledgerHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return rpc.NewClient(http.DefaultClient, server.URL, AuthServiceName),
		rpc.NewClient(http.DefaultClient, server.URL, LedgerServiceName)
}

func register(t *testing.T, c *rpc.Client, email, name string) (userID, token string) {
	t.Helper()
	resp := call(t, c, "Register", rpc.Object{"email": email, "display_name": name, "password": "password123"})
	if resp.String("token") == "" {
		t.Fatal("expected token in Register response")
	}
	return resp.Object("user").String("id"), resp.String("token")
}

func TestRegisterLoginAndCurrentUser(t *testing.T) {
	authClient, _ := setupAuthServer(t)

	userID, _ := register(t, authClient, "Alice@Example.com", "Alice")

	resp := call(t, authClient, "Login", rpc.Object{"email": "alice@example.com", "password": "password123"})
	token := resp.String("token")
	if resp.Object("user").String("id") != userID {
		t.Errorf("Login returned a different user")
	}

	me := call(t, authClient.WithToken(token), "GetCurrentUser", nil).Object("user")
	if me.String("id") != userID || me.String("display_name") != "Alice" || me.String("email") != "alice@example.com" {
		t.Errorf("unexpected current user %v", me)
	}
}

func TestAuthService_Errors(t *testing.T) {
	authClient, _ := setupAuthServer(t)
	register(t, authClient, "bob@example.com", "Bob")

	tests := []struct {
		name   string
		method string
		req    rpc.Object
		want   connect.Code
	}{
		{"duplicate email", "Register", rpc.Object{"email": "bob@example.com", "display_name": "Bob", "password": "password123"}, connect.CodeAlreadyExists},
		{"weak password", "Register", rpc.Object{"email": "x@example.com", "display_name": "X", "password": "short"}, connect.CodeInvalidArgument},
		{"missing display name", "Register", rpc.Object{"email": "y@example.com", "password": "password123"}, connect.CodeInvalidArgument},
		{"bad email", "Register", rpc.Object{"email": "nope", "display_name": "N", "password": "password123"}, connect.CodeInvalidArgument},
		{"wrong password", "Login", rpc.Object{"email": "bob@example.com", "password": "wrong-password"}, connect.CodeUnauthenticated},
		{"unknown user", "Login", rpc.Object{"email": "zed@example.com", "password": "password123"}, connect.CodeUnauthenticated},
		{"empty login", "Login", rpc.Object{}, connect.CodeInvalidArgument},
		{"anonymous current user", "GetCurrentUser", nil, connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, authClient, tt.method, tt.req, tt.want)
		})
	}
}

func TestLedgerRequiresToken(t *testing.T) {
	authClient, ledgerClient := setupAuthServer(t)
	aliceID, aliceToken := register(t, authClient, "alice@example.com", "Alice")
	bobID, _ := register(t, authClient, "bob@example.com", "Bob")

	expectCode(t, ledgerClient, "ListGroups", nil, connect.CodeUnauthenticated)

	resp, err := ledgerClient.WithToken(aliceToken).Call(context.Background(), "CreateGroup", rpc.Object{
		"name": "Trip", "members": []string{bobID},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if got := resp.Object("group").String("created_by"); got != aliceID {
		t.Errorf("expected creator %s, got %s", aliceID, got)
	}
}
