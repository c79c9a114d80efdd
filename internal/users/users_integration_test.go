//go:build integration
// +build integration

package users_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Rifate-nur-shawn/Ecom-server/internal/stores/postgres"
	"github.com/Rifate-nur-shawn/Ecom-server/internal/users"
	"github.com/Rifate-nur-shawn/Ecom-server/pkg/apperror"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("testuser"),
		pgcontainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Open(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, postgres.RunMigrations(db))
	return db
}

// recordingSender captures outgoing mail; with fail set it rejects every send.
type recordingSender struct {
	mu     sync.Mutex
	fail   bool
	bodies []string
}

func (s *recordingSender) Send(to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("relay unavailable")
	}
	s.bodies = append(s.bodies, body)
	return nil
}

func TestAuthenticateGenericFailureMessage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	conf, err := users.NewConf(db, nil)
	require.NoError(t, err)

	_, err = conf.InsertUser(ctx, users.NewUser{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, unknownErr := conf.Authenticate(ctx, "nobody@example.com", "correct-horse")
	_, wrongPassErr := conf.Authenticate(ctx, "alice@example.com", "wrong-horse")

	require.Error(t, unknownErr)
	require.Error(t, wrongPassErr)
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(unknownErr))
	assert.Equal(t, apperror.Unauthorized, apperror.KindOf(wrongPassErr))

	// Unknown email and bad password must be indistinguishable to the caller.
	assert.Equal(t, apperror.Message(unknownErr), apperror.Message(wrongPassErr))

	got, err := conf.Authenticate(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestRequestPasswordResetIndistinguishable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// A broken relay: every send fails.
	sender := &recordingSender{fail: true}
	conf, err := users.NewConf(db, sender)
	require.NoError(t, err)

	_, err = conf.InsertUser(ctx, users.NewUser{
		Email:    "bob@example.com",
		Password: "initial-pass",
	})
	require.NoError(t, err)

	// Registered and unknown addresses must both succeed, even when the email
	// cannot be delivered; anything else tells the caller which is which.
	assert.NoError(t, conf.RequestPasswordReset(ctx, "bob@example.com"))
	assert.NoError(t, conf.RequestPasswordReset(ctx, "nobody@example.com"))

	// The token was still minted for the registered address.
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM password_reset_tokens`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPasswordResetFlow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	sender := &recordingSender{}
	conf, err := users.NewConf(db, sender)
	require.NoError(t, err)

	_, err = conf.InsertUser(ctx, users.NewUser{
		Email:    "carol@example.com",
		Password: "old-password",
	})
	require.NoError(t, err)

	require.NoError(t, conf.RequestPasswordReset(ctx, "carol@example.com"))
	require.Len(t, sender.bodies, 1)
	token := tokenFromBody(t, sender.bodies[0])

	// A second request supersedes the first token.
	require.NoError(t, conf.RequestPasswordReset(ctx, "carol@example.com"))
	require.Len(t, sender.bodies, 2)
	fresh := tokenFromBody(t, sender.bodies[1])

	err = conf.ResetPassword(ctx, token, "new-password")
	require.Error(t, err)
	assert.Equal(t, apperror.BadRequest, apperror.KindOf(err))

	require.NoError(t, conf.ResetPassword(ctx, fresh, "new-password"))

	// The token is single-use.
	err = conf.ResetPassword(ctx, fresh, "another-password")
	assert.Equal(t, apperror.BadRequest, apperror.KindOf(err))

	_, err = conf.Authenticate(ctx, "carol@example.com", "old-password")
	assert.Error(t, err)
	_, err = conf.Authenticate(ctx, "carol@example.com", "new-password")
	assert.NoError(t, err)
}

func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	_, after, found := strings.Cut(body, "token=")
	require.True(t, found, "reset email must carry the token link")
	token, _, _ := strings.Cut(after, "\n")
	return token
}
