package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/anonmsg/internal/handler"
	"github.com/xxxsen/anonmsg/internal/mail"
	"github.com/xxxsen/anonmsg/internal/repo"
	"github.com/xxxsen/anonmsg/internal/service"
)

type nopSender struct {
	err error
}

func (s nopSender) Send(ctx context.Context, msg mail.Message) error {
	return s.err
}

type staticGenerator struct {
	out string
	err error
}

func (g staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.out, g.err
}

type testServer struct {
	engine *gin.Engine
	repo   *repo.MemoryAccountRepo
}

type envelope struct {
	Success             bool              `json:"success"`
	Message             string            `json:"message"`
	Token               string            `json:"token"`
	IsAcceptingMessages *bool             `json:"isAcceptingMessages"`
	Errors              map[string]string `json:"errors"`
	Messages            []struct {
		ID      string `json:"_id"`
		Content string `json:"content"`
	} `json:"messages"`
	UpdatedUser struct {
		IsAcceptingMessages bool `json:"isAcceptingMessages"`
	} `json:"updatedUser"`
	Questions []string `json:"questions"`
}

func newTestServer(t *testing.T, sender mail.Sender, gen staticGenerator) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	accounts := repo.NewMemoryAccountRepo()
	verifier := service.NewVerificationService(accounts, time.Hour)
	auth := service.NewAuthService(accounts, verifier, sender, service.AuthOptions{
		JWTSecret: []byte("handler-secret"),
		JWTTTL:    time.Hour,
		AppName:   "Anonymous Message",
	})
	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api"), handler.RouterDeps{
		Auth:        handler.NewAuthHandler(auth, verifier, false),
		Accounts:    handler.NewAccountHandler(service.NewAccountService(accounts)),
		Messages:    handler.NewMessageHandler(service.NewMessageService(accounts, 1, 300)),
		Suggestions: handler.NewSuggestionHandler(service.NewSuggestionService(gen, time.Second)),
		Sessions:    auth,
	})
	return &testServer{engine: engine, repo: accounts}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// register signs up and verifies username, then returns a session token.
func (s *testServer) register(t *testing.T, username, email string) string {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/sign-up", "", gin.H{"username": username, "email": email, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)
	acc, err := s.repo.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	w, _ = s.do(t, http.MethodPost, "/api/verify-code", "", gin.H{"username": username, "code": acc.VerifyCode})
	require.Equal(t, http.StatusOK, w.Code)
	w, env := s.do(t, http.MethodPost, "/api/sign-in", "", gin.H{"identifier": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, env.Token)
	return env.Token
}

func TestSignUpValidation(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	w, env := s.do(t, http.MethodPost, "/api/sign-up", "", gin.H{"username": "a!", "email": "nope", "password": "1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, env.Success)
	require.Equal(t, "Username must not contain special characters", env.Errors["username"])
	require.Equal(t, "Invalid email address", env.Errors["email"])
	require.Contains(t, env.Errors, "password")

	w, env = s.do(t, http.MethodPost, "/api/sign-up", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, env.Success)
}

func TestSignUpPasswordTooLong(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	w, env := s.do(t, http.MethodPost, "/api/sign-up", "", gin.H{"username": "alice", "email": "a@x.com", "password": strings.Repeat("p", 80)})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, env.Success)
	require.Equal(t, "Password must be no more than 72 characters", env.Errors["password"])

	// 40 runes but 80 bytes: passes the rune bound, still too long for bcrypt
	w, env = s.do(t, http.MethodPost, "/api/sign-up", "", gin.H{"username": "alice", "email": "a@x.com", "password": strings.Repeat("é", 40)})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Password must be no more than 72 characters", env.Errors["password"])

	_, err := s.repo.FindByEmail(context.Background(), "a@x.com")
	require.Error(t, err)
}

func TestSignUpDuplicateAndMailFailure(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	s.register(t, "alice", "a@x.com")
	w, env := s.do(t, http.MethodPost, "/api/sign-up", "", gin.H{"username": "alice", "email": "b@x.com", "password": "secret123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Username already exists", env.Message)

	failing := newTestServer(t, nopSender{err: errors.New("smtp down")}, staticGenerator{})
	w, env = failing.do(t, http.MethodPost, "/api/sign-up", "", gin.H{"username": "bob", "email": "b@x.com", "password": "secret123"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.False(t, env.Success)
}

func TestVerifyCodeStatuses(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	w, _ := s.do(t, http.MethodPost, "/api/sign-up", "", gin.H{"username": "alice", "email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/verify-code", "", gin.H{"username": "ghost", "code": "123456"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "User not found", env.Message)

	acc, err := s.repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	wrong := "123456"
	if acc.VerifyCode == wrong {
		wrong = "654321"
	}
	w, env = s.do(t, http.MethodPost, "/api/verify-code", "", gin.H{"username": "alice", "code": wrong})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid code", env.Message)

	acc.VerifyCodeExpiry = time.Now().Add(-time.Minute)
	require.NoError(t, s.repo.Update(context.Background(), acc))
	w, env = s.do(t, http.MethodPost, "/api/verify-code", "", gin.H{"username": "alice", "code": acc.VerifyCode})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Verification code expired", env.Message)
}

func TestSignInStatuses(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	w, _ := s.do(t, http.MethodPost, "/api/sign-up", "", gin.H{"username": "pending", "email": "p@x.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)
	s.register(t, "alice", "a@x.com")

	w, env := s.do(t, http.MethodPost, "/api/sign-in", "", gin.H{"identifier": "pending", "password": "secret123"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "User not verified, please verify your email", env.Message)

	w, _ = s.do(t, http.MethodPost, "/api/sign-in", "", gin.H{"identifier": "ghost", "password": "secret123"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/sign-in", "", gin.H{"identifier": "alice", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Incorrect password", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/sign-in", "", gin.H{"identifier": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, env.Token)
	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "session_token" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
}

func TestSessionRequired(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/accept-messages"},
		{http.MethodPost, "/api/accept-messages"},
		{http.MethodGet, "/api/get-messages"},
		{http.MethodDelete, "/api/delete-message/abc"},
		{http.MethodPost, "/api/sign-out"},
	} {
		w, env := s.do(t, tc.method, tc.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
		require.False(t, env.Success)
	}
}

func TestAcceptMessagesAndSend(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	token := s.register(t, "bob", "b@x.com")

	w, env := s.do(t, http.MethodGet, "/api/accept-messages", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.IsAcceptingMessages)
	require.True(t, *env.IsAcceptingMessages)

	w, env = s.do(t, http.MethodPost, "/api/accept-messages", token, gin.H{"isAcceptingMessages": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, env.UpdatedUser.IsAcceptingMessages)

	// the session snapshot still says accepting; the live flag wins
	w, env = s.do(t, http.MethodPost, "/api/send-message", "", gin.H{"username": "bob", "content": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, env.Success)
	require.Equal(t, "bob is not accepting messages currently.", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/get-messages", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, env.Messages)

	w, _ = s.do(t, http.MethodPost, "/api/accept-messages", token, gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/accept-messages", token, gin.H{"isAcceptingMessages": true})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/send-message", "", gin.H{"username": "bob", "content": "hi"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)

	w, _ = s.do(t, http.MethodPost, "/api/send-message", "", gin.H{"username": "bob", "content": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/send-message", "", gin.H{"username": "nobody", "content": "hi"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/u/bob", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, *env.IsAcceptingMessages)
}

func TestConcurrentSendMessage(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	token := s.register(t, "bob", "b@x.com")

	var wg sync.WaitGroup
	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/send-message", bytes.NewBufferString(`{"username":"bob","content":"hello"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			s.engine.ServeHTTP(w, req)
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		require.Equal(t, http.StatusCreated, code)
	}
	_, env := s.do(t, http.MethodGet, "/api/get-messages", token, nil)
	require.Len(t, env.Messages, 2)
}

func TestListAndDeleteMessages(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	bob := s.register(t, "bob", "b@x.com")
	eve := s.register(t, "eve", "e@x.com")
	for _, content := range []string{"first", "second"} {
		w, _ := s.do(t, http.MethodPost, "/api/send-message", "", gin.H{"username": "bob", "content": content})
		require.Equal(t, http.StatusCreated, w.Code)
		time.Sleep(2 * time.Millisecond)
	}

	_, env := s.do(t, http.MethodGet, "/api/get-messages", bob, nil)
	require.Len(t, env.Messages, 2)
	require.Equal(t, "second", env.Messages[0].Content)
	require.Equal(t, "first", env.Messages[1].Content)
	target := env.Messages[0].ID

	w, env := s.do(t, http.MethodDelete, "/api/delete-message/"+target, eve, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Message not found or already deleted", env.Message)

	w, _ = s.do(t, http.MethodDelete, "/api/delete-message/"+target, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/delete-message/"+target, bob, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	_, env = s.do(t, http.MethodGet, "/api/get-messages", bob, nil)
	require.Len(t, env.Messages, 1)
}

func TestSignOutRevokesToken(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	token := s.register(t, "bob", "b@x.com")
	w, _ := s.do(t, http.MethodPost, "/api/sign-out", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/get-messages", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckUsernameUnique(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{})
	s.register(t, "taken", "t@x.com")

	w, env := s.do(t, http.MethodGet, "/api/check-username-unique?username=taken", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Username is already taken", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/check-username-unique?username=fresh_name", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Username is available", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/check-username-unique?username=x", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Username must be at least 2 characters", env.Message)
}

func TestSuggestMessages(t *testing.T) {
	s := newTestServer(t, nopSender{}, staticGenerator{out: "A?||B?||C?"})
	w, env := s.do(t, http.MethodPost, "/api/suggest-messages", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"A?", "B?", "C?"}, env.Questions)

	failing := newTestServer(t, nopSender{}, staticGenerator{err: errors.New("down")})
	w, env = failing.do(t, http.MethodPost, "/api/suggest-messages", "", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.False(t, env.Success)
}
