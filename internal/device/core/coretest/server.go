// Package coretest runs an in-process CORE for tests. It signs every answer
// with its own key and records what devices send it.
package coretest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dmitrijs2005/finn/internal/common"
	"github.com/dmitrijs2005/finn/internal/device/jwtcodec"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Trigger is one trigger token received on POST /actions.
type Trigger struct {
	DeviceID      string `json:"deviceID"`
	ActionID      string `json:"actionID"`
	AlternativeID string `json:"alternativeID,omitempty"`
	QueueID       string `json:"value"`
}

type Server struct {
	*httptest.Server

	// Key signs every response. Devices verify with Key.PublicKey.
	Key *rsa.PrivateKey

	mu        sync.Mutex
	devicePub *rsa.PublicKey
	calls     map[string]int
	triggers  []Trigger

	paired          bool
	activationError string
	actions         []any
	triggerStatus   string
	triggerCode     int
	messagesBot     any
	failCode        int
	badSignature    bool
}

// New starts a server that reports the device as unpaired, accepts
// activation and answers triggers with OK.
func New(t testing.TB) *Server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("coretest: generate key: %v", err)
	}

	s := &Server{
		Key:           key,
		calls:         map[string]int{},
		triggerStatus: "OK",
		actions:       []any{},
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/pair", s.handlePair)
	r.Get("/actions", s.handleGetActions)
	r.Post("/actions", s.handleTrigger)
	r.Post("/status", s.handleActivate)
	r.Get("/messages", s.handleMessages)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) SetPaired(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paired = v
}

// SetActivationError makes POST /status answer with msg; "" means success.
func (s *Server) SetActivationError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activationError = msg
}

// SetActions sets the catalog. Entries are encoded as given so tests can
// include malformed descriptors.
func (s *Server) SetActions(actions ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = actions
}

func (s *Server) SetTriggerStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggerStatus = status
}

// SetTriggerHTTPStatus forces the HTTP status of POST /actions; 0 restores 200.
func (s *Server) SetTriggerHTTPStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggerCode = code
}

// SetMessages sets the bot claim of GET /messages: a string is sent verbatim,
// anything else is JSON encoded first.
func (s *Server) SetMessages(bot any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messagesBot = bot
}

// FailAll answers every request with code; 0 restores normal service.
func (s *Server) FailAll(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCode = code
}

// SignWithWrongKey makes every answer fail verification.
func (s *Server) SignWithWrongKey(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badSignature = v
}

// VerifyDeviceTokens checks trigger and activation tokens against pub. Until
// it is set tokens are decoded without verification.
func (s *Server) VerifyDeviceTokens(pub *rsa.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devicePub = pub
}

// Calls returns the number of requests for "METHOD /path".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls counts every request received.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Server) Triggers() []Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Trigger(nil), s.triggers...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.Method+" "+r.URL.Path]++
		code := s.failCode
		s.mu.Unlock()

		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		if r.Header.Get(common.MakerIDHeaderName) == "" || r.Header.Get(common.DeviceIDHeaderName) == "" {
			http.Error(w, "missing device headers", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	paired := s.paired
	s.mu.Unlock()

	s.reply(w, mustJSON(map[string]bool{"status": paired}))
}

func (s *Server) handleGetActions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	actions := s.actions
	s.mu.Unlock()

	s.reply(w, mustJSON(actions))
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Bot struct {
			DeviceID string `json:"deviceID"`
		} `json:"bot"`
	}
	if err := s.readToken(r, &payload); err != nil || payload.Bot.DeviceID == "" {
		http.Error(w, "bad token", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	msg := s.activationError
	s.mu.Unlock()

	s.reply(w, msg)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Bot Trigger `json:"bot"`
	}
	if err := s.readToken(r, &payload); err != nil {
		http.Error(w, "bad token", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.triggers = append(s.triggers, payload.Bot)
	code := s.triggerCode
	status := s.triggerStatus
	s.mu.Unlock()

	if code != 0 && code != http.StatusOK {
		http.Error(w, http.StatusText(code), code)
		return
	}
	s.reply(w, mustJSON(map[string]string{"status": status}))
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	bot := s.messagesBot
	s.mu.Unlock()

	switch v := bot.(type) {
	case nil:
		s.reply(w, "[]")
	case string:
		s.reply(w, v)
	default:
		s.reply(w, mustJSON(v))
	}
}

func (s *Server) readToken(r *http.Request, v any) error {
	var body struct {
		Bot string `json:"bot"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return err
	}

	s.mu.Lock()
	pub := s.devicePub
	s.mu.Unlock()

	if pub != nil {
		return jwtcodec.VerifyInto([]byte(body.Bot), pub, v)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(body.Bot, claims); err != nil {
		return err
	}
	b, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (s *Server) reply(w http.ResponseWriter, bot string) {
	s.mu.Lock()
	key := s.Key
	bad := s.badSignature
	s.mu.Unlock()

	if bad {
		other, err := rsa.GenerateKey(rand.Reader, 1024)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		key = other
	}

	tok, err := jwtcodec.Sign(map[string]string{jwtcodec.BotClaim: bot}, key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(tok))
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
