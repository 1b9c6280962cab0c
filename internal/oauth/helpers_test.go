package oauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/common"
	"github.com/bobmcallan/agentdrugs/internal/credentials"
	"github.com/bobmcallan/agentdrugs/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source shared by every component under test.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *memory.Manager, *fakeClock) {
	t.Helper()
	mgr := memory.NewManager(common.NewSilentLogger())
	cfg := common.NewDefaultConfig()
	svc := NewService(mgr, cfg.Auth, credentials.Default, common.NewSilentLogger())
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc.SetClock(clock.Now)
	return svc, mgr, clock
}

// requireOAuthError asserts err is an *Error with the given code.
func requireOAuthError(t *testing.T, err error, code string) *Error {
	t.Helper()
	require.Error(t, err)
	var oe *Error
	require.True(t, errors.As(err, &oe), "expected *oauth.Error, got %T: %v", err, err)
	require.Equal(t, code, oe.Code, "description: %s", oe.Description)
	return oe
}

const testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

// issueCode runs a completion for user-1 and returns the code.
func issueCode(t *testing.T, svc *Service, clientID, redirect string) string {
	t.Helper()
	res, err := svc.Authorizer.Complete(context.Background(), "user-1", &CompletionRequest{
		ClientID:            clientID,
		RedirectURI:         redirect,
		State:               "xyz",
		CodeChallenge:       S256Challenge(testVerifier),
		CodeChallengeMethod: MethodS256,
	})
	require.NoError(t, err)
	return res.AuthorizationCode
}
