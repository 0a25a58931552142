package auth_test

import (
	"testing"
	"time"

	"ctfplatform/internal/auth"
	"ctfplatform/internal/realtime"
	"ctfplatform/internal/testutil"
	pkgerrors "ctfplatform/pkg/errors"
)

func TestIssueAndAuthenticate(t *testing.T) {
	tokens := auth.NewTokenService("secret", "ctfplatform", time.Hour)

	for _, role := range []string{auth.RoleAdmin, auth.RoleManager, auth.RoleTeam} {
		raw, expiresAt, err := tokens.IssueToken(7, role)
		testutil.AssertNoError(t, err)
		testutil.AssertTrue(t, time.Until(expiresAt) > 59*time.Minute, "ttl applied")

		identity, err := tokens.Authenticate(raw)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, identity, auth.Identity{ID: 7, Role: role})
	}
}

func TestScope(t *testing.T) {
	tokens := auth.NewTokenService("secret", "ctfplatform", time.Hour)

	audience, identity, err := tokens.Scope("")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, audience, realtime.AudienceGuests)
	testutil.AssertEqual(t, identity.ID, int64(0))

	raw, _, err := tokens.IssueToken(3, auth.RoleManager)
	testutil.AssertNoError(t, err)
	audience, identity, err = tokens.Scope(raw)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, audience, realtime.AudienceSupervisors)
	testutil.AssertTrue(t, identity.IsSupervisor(), "manager is a supervisor")

	raw, _, err = tokens.IssueToken(4, auth.RoleTeam)
	testutil.AssertNoError(t, err)
	audience, identity, err = tokens.Scope(raw)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, audience, realtime.AudienceTeams)
	testutil.AssertFalse(t, identity.IsSupervisor(), "team is not a supervisor")

	_, _, err = tokens.Scope("garbage")
	testutil.AssertErrorCode(t, err, pkgerrors.TokenInvalid)
}

func TestAuthenticate_Rejections(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	past := auth.NewTokenService("secret", "ctfplatform", time.Hour).WithClock(func() time.Time { return issuedAt })
	expired, _, err := past.IssueToken(1, auth.RoleAdmin)
	testutil.AssertNoError(t, err)

	tokens := auth.NewTokenService("secret", "ctfplatform", time.Hour)
	_, err = tokens.Authenticate(expired)
	testutil.AssertErrorCode(t, err, pkgerrors.TokenExpired)

	other := auth.NewTokenService("other-secret", "ctfplatform", time.Hour)
	foreign, _, err := other.IssueToken(1, auth.RoleAdmin)
	testutil.AssertNoError(t, err)
	_, err = tokens.Authenticate(foreign)
	testutil.AssertErrorCode(t, err, pkgerrors.TokenInvalid)

	otherIssuer := auth.NewTokenService("secret", "someone-else", time.Hour)
	wrongIssuer, _, err := otherIssuer.IssueToken(1, auth.RoleAdmin)
	testutil.AssertNoError(t, err)
	_, err = tokens.Authenticate(wrongIssuer)
	testutil.AssertErrorCode(t, err, pkgerrors.TokenInvalid)

	_, err = tokens.Authenticate("")
	testutil.AssertErrorCode(t, err, pkgerrors.TokenInvalid)
}

func TestIssueToken_Rejections(t *testing.T) {
	tokens := auth.NewTokenService("secret", "", 0)
	_, _, err := tokens.IssueToken(1, "root")
	testutil.AssertErrorCode(t, err, pkgerrors.TokenGenerationFailed)

	empty := auth.NewTokenService("", "", 0)
	_, _, err = empty.IssueToken(1, auth.RoleAdmin)
	testutil.AssertErrorCode(t, err, pkgerrors.TokenGenerationFailed)
}

func TestAudienceForRole(t *testing.T) {
	_, err := auth.AudienceForRole("guest")
	testutil.AssertTrue(t, err != nil, "unknown role rejected")
}
