// Package api exposes the health probe and the LINE webhook.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/line/line-bot-sdk-go/v7/linebot"

	"rental-bot/bot"
	"rental-bot/utils"
)

const serviceName = "rental-bot"

// TextHandler handles one inbound text message.
type TextHandler interface {
	HandleText(ctx context.Context, ev bot.Event) error
}

// Server routes webhook deliveries to the bot. Event handling runs after the
// response is written, so LINE never waits on a scrape.
type Server struct {
	router       *mux.Router
	secret       string
	handler      TextHandler
	version      string
	eventTimeout time.Duration
	logger       *utils.Logger
	inflight     sync.WaitGroup
}

func NewServer(channelSecret string, handler TextHandler, version string, eventTimeout time.Duration, logger *utils.Logger) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		secret:       channelSecret,
		handler:      handler,
		version:      version,
		eventTimeout: eventTimeout,
		logger:       logger,
	}
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/webhook", s.handleWebhook).Methods(http.MethodPost)
	return s
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until every dispatched event has been handled.
func (s *Server) Wait() {
	s.inflight.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": s.version,
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	events, err := linebot.ParseRequest(s.secret, r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			s.logger.Warn("[api] Rejected webhook with invalid signature from %s", r.RemoteAddr)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
			return
		}
		s.logger.Error("[api] Parsing webhook failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "bad request body"})
		return
	}

	received := time.Now()
	for _, ev := range events {
		if be, ok := textEvent(ev, received); ok {
			s.dispatch(be)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// dispatch handles ev on its own goroutine with a context detached from the
// request.
func (s *Server) dispatch(ev bot.Event) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.eventTimeout)
		defer cancel()

		if err := s.handler.HandleText(ctx, ev); err != nil {
			s.logger.Warn("[api] Event from %s finished with error: %v", ev.ConversationID, err)
		}
	}()
}

func textEvent(ev *linebot.Event, received time.Time) (bot.Event, bool) {
	if ev.Type != linebot.EventTypeMessage || ev.Source == nil {
		return bot.Event{}, false
	}
	msg, ok := ev.Message.(*linebot.TextMessage)
	if !ok {
		return bot.Event{}, false
	}
	return bot.Event{
		ConversationID: conversationID(ev.Source),
		ReplyToken:     ev.ReplyToken,
		Text:           msg.Text,
		ReceivedAt:     received,
	}, true
}

// conversationID prefers the group, then the room, then the user.
func conversationID(src *linebot.EventSource) string {
	switch {
	case src.GroupID != "":
		return src.GroupID
	case src.RoomID != "":
		return src.RoomID
	default:
		return src.UserID
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
