package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive-dev/taskhive/internal/apperr"
	"github.com/taskhive-dev/taskhive/internal/models"
	"github.com/taskhive-dev/taskhive/internal/sessions"
	"github.com/taskhive-dev/taskhive/internal/testdb"
	"github.com/taskhive-dev/taskhive/internal/token"
	"gorm.io/gorm"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) SendPasswordReset(to, link string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, link)
	return nil
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeMailer) {
	t.Helper()

	conn := testdb.New(t)
	codec := token.NewCodec(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		ResetSecret:   "reset-secret",
	})
	mailer := &fakeMailer{}
	svc := NewService(conn, codec, sessions.NewStore(conn), mailer, "http://localhost:5173")
	return svc, conn, mailer
}

var client = Client{IP: "127.0.0.1", UserAgent: "go-test"}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.Register("Alice", "a@x.com", "pw1secret", client)
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "a@x.com", res.User.Email)

	_, err = svc.Register("Alice Again", "a@x.com", "pw2secret", client)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Email comparison is case-insensitive.
	_, err = svc.Register("Alice Again", "A@X.COM", "pw2secret", client)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)

	registered, err := svc.Register("Alice", "a@x.com", "pw1secret", client)
	require.NoError(t, err)

	logged, err := svc.Login("a@x.com", "pw1secret", client)
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, logged.RefreshToken)
	assert.NotEmpty(t, logged.AccessToken)

	_, err = svc.Login("a@x.com", "wrong-password", client)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)

	_, err = svc.Login("nobody@x.com", "pw1secret", client)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRefresh_RotatesExactlyOnce(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.Register("Alice", "a@x.com", "pw1secret", client)
	require.NoError(t, err)

	rotated, err := svc.Refresh(res.RefreshToken, client)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, res.User.ID, rotated.User.ID)

	// The captured value is now worthless.
	_, err = svc.Refresh(res.RefreshToken, client)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	// The successor still works.
	_, err = svc.Refresh(rotated.RefreshToken, client)
	require.NoError(t, err)
}

func TestRefresh_MissingAndUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Refresh("", client)
	assert.ErrorIs(t, err, apperr.ErrMissingToken)

	_, err = svc.Refresh("never-issued", client)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestRefresh_TamperedTokenRevokesSession(t *testing.T) {
	svc, conn, _ := newTestService(t)

	res, err := svc.Register("Alice", "a@x.com", "pw1secret", client)
	require.NoError(t, err)

	// Plant a session whose token value will not verify. A verification
	// failure on a known record is treated as compromise and the record is
	// transitioned to revoked.
	forged := models.Session{UserID: res.User.ID, RefreshToken: "forged-value"}
	require.NoError(t, conn.Create(&forged).Error)

	_, err = svc.Refresh("forged-value", client)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	var stored models.Session
	require.NoError(t, conn.Where("refresh_token = ?", "forged-value").First(&stored).Error)
	assert.True(t, stored.IsRevoked)
}

func TestLogout_Idempotent(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.Register("Alice", "a@x.com", "pw1secret", client)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(res.RefreshToken))
	require.NoError(t, svc.Logout(res.RefreshToken))
	require.NoError(t, svc.Logout(""))

	_, err = svc.Refresh(res.RefreshToken, client)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestPasswordReset_SingleUse(t *testing.T) {
	svc, conn, mailer := newTestService(t)

	res, err := svc.Register("Alice", "a@x.com", "pw1secret", client)
	require.NoError(t, err)

	assert.True(t, svc.RequestPasswordReset("a@x.com"))
	assert.False(t, svc.RequestPasswordReset("nobody@x.com"))
	require.Len(t, mailer.sent, 1)

	resetToken, err := svc.codec.Issue(token.Reset, res.User.ID)
	require.NoError(t, err)

	assert.True(t, svc.ConfirmPasswordReset(resetToken, "freshpassword"))

	// First use consumed the claim; replay fails.
	assert.False(t, svc.ConfirmPasswordReset(resetToken, "anotherpassword"))

	// Old password is dead, new one works, and the reset killed the
	// outstanding sessions.
	_, err = svc.Login("a@x.com", "pw1secret", client)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredential)

	_, err = svc.Login("a@x.com", "freshpassword", client)
	require.NoError(t, err)

	var session models.Session
	require.NoError(t, conn.Where("refresh_token = ?", res.RefreshToken).First(&session).Error)
	assert.True(t, session.IsRevoked)
}

func TestPasswordReset_ExpiredClaimRejected(t *testing.T) {
	conn := testdb.New(t)
	codec := token.NewCodec(token.Config{
		AccessSecret:  "s1",
		RefreshSecret: "s2",
		ResetSecret:   "s3",
		ResetTTL:      -time.Minute,
	})
	svc := NewService(conn, codec, sessions.NewStore(conn), &fakeMailer{}, "http://localhost:5173")

	res, err := svc.Register("Alice", "a@x.com", "pw1secret", client)
	require.NoError(t, err)

	expired, err := codec.Issue(token.Reset, res.User.ID)
	require.NoError(t, err)

	assert.False(t, svc.ConfirmPasswordReset(expired, "freshpassword"))
}

func TestPasswordReset_MailFailureReportsFalse(t *testing.T) {
	svc, _, mailer := newTestService(t)

	_, err := svc.Register("Alice", "a@x.com", "pw1secret", client)
	require.NoError(t, err)

	mailer.err = assert.AnError
	assert.False(t, svc.RequestPasswordReset("a@x.com"))
}
