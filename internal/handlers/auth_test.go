package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/config"
	"github.com/zyncjobs/backend/internal/hash"
	"github.com/zyncjobs/backend/internal/models"
	"github.com/zyncjobs/backend/internal/service"
)

type capturedEvent struct {
	Topic string
	Key   string
	Event interface{}
}

type fakePublisher struct {
	events []capturedEvent
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	f.events = append(f.events, capturedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

type fakeMailer struct {
	to   []string
	body []string
}

func (f *fakeMailer) Send(to, subject, htmlBody string) error {
	f.to = append(f.to, to)
	f.body = append(f.body, htmlBody)
	return nil
}

var mailTokenRe = regexp.MustCompile(`/reset-password/([0-9a-f]{64})`)

func (f *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.body)
	m := mailTokenRe.FindStringSubmatch(f.body[len(f.body)-1])
	require.Len(t, m, 2)
	return m[1]
}

type authEnv struct {
	e       *echo.Echo
	db      *gorm.DB
	handler *AuthHandler
	pub     *fakePublisher
	mailer  *fakeMailer
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	tokens := &service.TokenService{
		DB:            db,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	mailer := &fakeMailer{}
	reset := &service.ResetService{
		DB:          db,
		Mailer:      mailer,
		Tokens:      tokens,
		FrontendURL: "http://localhost:3000",
	}
	pub := &fakePublisher{}

	return &authEnv{
		e:  echo.New(),
		db: db,
		handler: &AuthHandler{
			DB:       db,
			Tokens:   tokens,
			Reset:    reset,
			Producer: pub,
		},
		pub:    pub,
		mailer: mailer,
	}
}

func (env *authEnv) request(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return env.e.NewContext(req, rec), rec
}

func (env *authEnv) register(t *testing.T, email, password, role string) map[string]interface{} {
	t.Helper()
	c, rec := env.request(http.MethodPost, "/api/users/register",
		`{"email":"`+email+`","password":"`+password+`","name":"Test User","role":"`+role+`"}`)
	require.NoError(t, env.handler.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "refreshToken" {
			return ck
		}
	}
	t.Fatal("refreshToken cookie not set")
	return nil
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he.Code
}

func TestRegister_IssuesTokensAndCookie(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, rec := env.request(http.MethodPost, "/api/users/register",
		`{"email":"new@example.com","password":"secret1","name":"New User","role":"jobseeker"}`)
	require.NoError(t, env.handler.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])

	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "new@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	ck := refreshCookie(t, rec)
	assert.True(t, ck.HttpOnly)
	assert.NotEmpty(t, ck.Value)

	// password is stored hashed
	var stored models.User
	require.NoError(t, env.db.Where("email = ?", "new@example.com").First(&stored).Error)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.True(t, hash.CheckPassword(stored.PasswordHash, "secret1"))

	require.Len(t, env.pub.events, 1)
	assert.Equal(t, "user_events", env.pub.events[0].Topic)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	cases := []struct {
		name string
		body string
	}{
		{"bad email", `{"email":"nope","password":"secret1","name":"N","role":"jobseeker"}`},
		{"short password", `{"email":"a@example.com","password":"abc","name":"N","role":"jobseeker"}`},
		{"missing name", `{"email":"a@example.com","password":"secret1","role":"jobseeker"}`},
		{"bad role", `{"email":"a@example.com","password":"secret1","name":"N","role":"admin"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := env.request(http.MethodPost, "/api/users/register", tc.body)
			err := env.handler.Register(c)
			assert.Equal(t, http.StatusBadRequest, httpStatus(t, err))
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.register(t, "dup@example.com", "secret1", "jobseeker")

	c, _ := env.request(http.MethodPost, "/api/users/register",
		`{"email":"dup@example.com","password":"secret1","name":"Again","role":"employer"}`)
	err := env.handler.Register(c)
	assert.Equal(t, http.StatusConflict, httpStatus(t, err))
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.register(t, "login@example.com", "secret1", "jobseeker")

	c, rec := env.request(http.MethodPost, "/api/users/login",
		`{"email":"login@example.com","password":"secret1"}`)
	require.NoError(t, env.handler.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])
	refreshCookie(t, rec)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.register(t, "login2@example.com", "secret1", "jobseeker")

	c, _ := env.request(http.MethodPost, "/api/users/login",
		`{"email":"login2@example.com","password":"wrong-pass"}`)
	err := env.handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.register(t, "known@example.com", "secret1", "jobseeker")

	cWrong, _ := env.request(http.MethodPost, "/api/users/login",
		`{"email":"known@example.com","password":"wrong-pass"}`)
	errWrong := env.handler.Login(cWrong)

	cUnknown, _ := env.request(http.MethodPost, "/api/users/login",
		`{"email":"ghost@example.com","password":"whatever"}`)
	errUnknown := env.handler.Login(cUnknown)

	// the two failures must be indistinguishable
	var heWrong, heUnknown *echo.HTTPError
	require.ErrorAs(t, errWrong, &heWrong)
	require.ErrorAs(t, errUnknown, &heUnknown)
	assert.Equal(t, heWrong.Code, heUnknown.Code)
	assert.Equal(t, heWrong.Message, heUnknown.Message)
}

func TestLogin_InactiveUserRejected(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.register(t, "inactive@example.com", "secret1", "jobseeker")
	require.NoError(t, env.db.Model(&models.User{}).
		Where("email = ?", "inactive@example.com").
		Update("is_active", false).Error)

	c, _ := env.request(http.MethodPost, "/api/users/login",
		`{"email":"inactive@example.com","password":"secret1"}`)
	err := env.handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}

func TestRefresh_RotatesCookie(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, rec := env.request(http.MethodPost, "/api/users/register",
		`{"email":"rot@example.com","password":"secret1","name":"R","role":"jobseeker"}`)
	require.NoError(t, env.handler.Register(c))
	old := refreshCookie(t, rec)

	c2, rec2 := env.request(http.MethodPost, "/api/users/refresh", "")
	c2.Request().AddCookie(old)
	require.NoError(t, env.handler.Refresh(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])

	rotated := refreshCookie(t, rec2)
	assert.NotEqual(t, old.Value, rotated.Value)
}

func TestRefresh_OldTokenSingleUse(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, rec := env.request(http.MethodPost, "/api/users/register",
		`{"email":"once@example.com","password":"secret1","name":"O","role":"jobseeker"}`)
	require.NoError(t, env.handler.Register(c))
	old := refreshCookie(t, rec)

	c2, _ := env.request(http.MethodPost, "/api/users/refresh", "")
	c2.Request().AddCookie(old)
	require.NoError(t, env.handler.Refresh(c2))

	// replaying the consumed token fails and clears the cookie
	c3, rec3 := env.request(http.MethodPost, "/api/users/refresh", "")
	c3.Request().AddCookie(old)
	err := env.handler.Refresh(c3)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))

	cleared := refreshCookie(t, rec3)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))
}

func TestRefresh_NoCookie(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, _ := env.request(http.MethodPost, "/api/users/refresh", "")
	err := env.handler.Refresh(c)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}

func TestRefresh_GarbageCookie(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, _ := env.request(http.MethodPost, "/api/users/refresh", "")
	c.Request().AddCookie(&http.Cookie{Name: "refreshToken", Value: "garbage"})
	err := env.handler.Refresh(c)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}

func TestLogout_RevokesAllSessions(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, rec := env.request(http.MethodPost, "/api/users/register",
		`{"email":"out@example.com","password":"secret1","name":"O","role":"jobseeker"}`)
	require.NoError(t, env.handler.Register(c))
	ck := refreshCookie(t, rec)

	var user models.User
	require.NoError(t, env.db.Where("email = ?", "out@example.com").First(&user).Error)

	cOut, recOut := env.request(http.MethodPost, "/api/users/logout", "")
	cOut.Set("userID", user.ID)
	require.NoError(t, env.handler.Logout(cOut))
	require.Equal(t, http.StatusOK, recOut.Code)

	// the refresh token no longer rotates
	cRef, _ := env.request(http.MethodPost, "/api/users/refresh", "")
	cRef.Request().AddCookie(ck)
	err := env.handler.Refresh(cRef)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}

func TestLogout_WithoutIdentity(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, _ := env.request(http.MethodPost, "/api/users/logout", "")
	err := env.handler.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, err))
}

func TestForgotPassword_GenericResponse(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.register(t, "real@example.com", "secret1", "jobseeker")

	for _, email := range []string{"real@example.com", "ghost@example.com"} {
		c, rec := env.request(http.MethodPost, "/api/forgot-password", `{"email":"`+email+`"}`)
		require.NoError(t, env.handler.ForgotPassword(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Email sent")
	}

	// only the real account got mail
	assert.Equal(t, []string{"real@example.com"}, env.mailer.to)
}

func TestForgotPassword_MissingEmail(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, _ := env.request(http.MethodPost, "/api/forgot-password", `{}`)
	err := env.handler.ForgotPassword(c)
	assert.Equal(t, http.StatusBadRequest, httpStatus(t, err))
}

func TestResetFlow_EndToEnd(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.register(t, "flow@example.com", "secret1", "jobseeker")

	c, _ := env.request(http.MethodPost, "/api/forgot-password", `{"email":"flow@example.com"}`)
	require.NoError(t, env.handler.ForgotPassword(c))
	token := env.mailer.lastToken(t)

	// verify reports the owning email
	cVerify, recVerify := env.request(http.MethodGet, "/api/verify-reset-token/"+token, "")
	cVerify.SetParamNames("token")
	cVerify.SetParamValues(token)
	require.NoError(t, env.handler.VerifyResetToken(cVerify))
	assert.Contains(t, recVerify.Body.String(), "flow@example.com")

	cReset, recReset := env.request(http.MethodPost, "/api/reset-password",
		`{"token":"`+token+`","newPassword":"changed-pass"}`)
	require.NoError(t, env.handler.ResetPassword(cReset))
	require.Equal(t, http.StatusOK, recReset.Code)
	assert.Contains(t, recReset.Body.String(), "Password reset successful")

	// old password rejected, new accepted
	cOld, _ := env.request(http.MethodPost, "/api/users/login",
		`{"email":"flow@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusUnauthorized, httpStatus(t, env.handler.Login(cOld)))

	cNew, recNew := env.request(http.MethodPost, "/api/users/login",
		`{"email":"flow@example.com","password":"changed-pass"}`)
	require.NoError(t, env.handler.Login(cNew))
	assert.Equal(t, http.StatusOK, recNew.Code)

	// consumed token cannot be replayed
	cAgain, _ := env.request(http.MethodPost, "/api/reset-password",
		`{"token":"`+token+`","newPassword":"sneaky-pass"}`)
	assert.Equal(t, http.StatusBadRequest, httpStatus(t, env.handler.ResetPassword(cAgain)))
}

func TestResetPassword_Validation(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.register(t, "val@example.com", "secret1", "jobseeker")

	c, _ := env.request(http.MethodPost, "/api/forgot-password", `{"email":"val@example.com"}`)
	require.NoError(t, env.handler.ForgotPassword(c))
	token := env.mailer.lastToken(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"missing token", `{"newPassword":"longenough"}`, http.StatusBadRequest},
		{"missing password", `{"token":"` + token + `"}`, http.StatusBadRequest},
		{"weak password", `{"token":"` + token + `","newPassword":"abc"}`, http.StatusBadRequest},
		{"bogus token", `{"token":"deadbeef","newPassword":"longenough"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := env.request(http.MethodPost, "/api/reset-password", tc.body)
			err := env.handler.ResetPassword(c)
			assert.Equal(t, tc.code, httpStatus(t, err))
		})
	}
}

func TestVerifyResetToken_Bogus(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	c, _ := env.request(http.MethodGet, "/api/verify-reset-token/nope", "")
	c.SetParamNames("token")
	c.SetParamValues("nope")
	err := env.handler.VerifyResetToken(c)
	assert.Equal(t, http.StatusBadRequest, httpStatus(t, err))
}
