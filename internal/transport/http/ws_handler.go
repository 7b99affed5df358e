package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"pack-quiz/internal/app"
	"pack-quiz/internal/config"
	"pack-quiz/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// AppFactory builds the per-connection quiz application.
type AppFactory func(log logrus.FieldLogger) *app.QuizApp

type WSHandler struct {
	newApp   AppFactory
	upgrader websocket.Upgrader
}

func NewWSHandler(newApp AppFactory) *WSHandler {
	return &WSHandler{
		newApp: newApp,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	PackID string `json:"packId"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type loginPayload struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type noticePayload struct {
	Message string `json:"message"`
}

// questionView is the in-progress screen; correct answers stay server-side.
type questionView struct {
	PackID   string   `json:"packId"`
	Title    string   `json:"title"`
	Index    int      `json:"index"`
	Total    int      `json:"total"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Selected int      `json:"selected"`
	IsLast   bool     `json:"isLast"`
	Score    int      `json:"score"`
}

type resultView struct {
	domain.Summary
	Line  string `json:"line"`
	Label string `json:"label"`
}

// ServeWS upgrades HTTP requests to websockets and drives one QuizApp per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := config.ContextWithFields(r.Context(), logrus.Fields{"conn_id": uuid.NewString()})
	log := config.WithContext(ctx)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	quiz := h.newApp(log)
	updates, cancel := quiz.UserUpdates()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case user, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "user", Payload: user}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if token := r.URL.Query().Get("token"); token != "" {
		if _, err := quiz.Resume(ctx, token); err != nil {
			send <- errorMessage(err)
		} else {
			sendNotice(send, quiz)
		}
	}
	send <- outboundMessage[any]{Type: "catalog", Payload: quiz.Catalog()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.handle(ctx, quiz, inbound) {
			send <- msg
		}
	}
	log.Debug("ws connection closed")

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(ctx context.Context, quiz *app.QuizApp, inbound inboundMessage) []outboundMessage[any] {
	switch inbound.Type {
	case "catalog":
		return one("catalog", quiz.Catalog())
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.PackID == "" {
			return []outboundMessage[any]{invalidPayload("start")}
		}
		if err := quiz.StartPack(ctx, payload.PackID); err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		return one("question", currentQuestion(quiz.Session()))
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Option == nil {
			return []outboundMessage[any]{invalidPayload("select")}
		}
		if err := quiz.Session().SelectAnswer(*payload.Option); err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		return one("question", currentQuestion(quiz.Session()))
	case "advance":
		summary, err := quiz.Advance(ctx)
		if err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		if summary != nil {
			return resultMessages(quiz, *summary)
		}
		return one("question", currentQuestion(quiz.Session()))
	case "retreat":
		if err := quiz.Session().Retreat(); err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		return one("question", currentQuestion(quiz.Session()))
	case "finish":
		summary, err := quiz.Finish(ctx)
		if err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		return resultMessages(quiz, *summary)
	case "reset":
		quiz.Session().Reset()
		return one("catalog", quiz.Catalog())
	case "login":
		var payload loginPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return []outboundMessage[any]{invalidPayload("login")}
		}
		if _, err := quiz.SignIn(ctx, payload.Identifier, payload.Password); err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		return noticeMessages(quiz)
	case "logout":
		if err := quiz.SignOut(ctx); err != nil {
			return []outboundMessage[any]{errorMessage(err)}
		}
		return nil
	case "status":
		var payload startPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return []outboundMessage[any]{invalidPayload("status")}
			}
		}
		if payload.PackID != "" {
			return one("status", quiz.Status(payload.PackID))
		}
		statuses := make([]domain.PackStatus, 0, len(quiz.Catalog()))
		for _, entry := range quiz.Catalog() {
			statuses = append(statuses, quiz.Status(entry.ID))
		}
		return one("status", statuses)
	case "highlight":
		return one("highlight", quiz.Highlight())
	case "dismiss":
		quiz.Profile().DismissNotice()
		return one("notice", noticePayload{Message: quiz.Profile().Notice()})
	default:
		return one("error", errorPayload{Message: "unsupported message type"})
	}
}

func one(typ string, payload any) []outboundMessage[any] {
	return []outboundMessage[any]{{Type: typ, Payload: payload}}
}

func currentQuestion(session *app.SessionController) questionView {
	q, _ := session.CurrentQuestion()
	progress := session.Progress()
	return questionView{
		PackID:   session.Pack().ID,
		Title:    session.Pack().Title,
		Index:    progress.Index,
		Total:    progress.Total,
		Question: q.Question,
		Options:  q.Options,
		Selected: session.Answer(),
		IsLast:   progress.IsLast,
		Score:    progress.ProvisionalScore,
	}
}

func resultMessages(quiz *app.QuizApp, summary domain.Summary) []outboundMessage[any] {
	out := one("result", resultView{Summary: summary, Line: app.SummaryLine(summary), Label: app.ResultLabel(summary)})
	return append(out, noticeMessages(quiz)...)
}

func noticeMessages(quiz *app.QuizApp) []outboundMessage[any] {
	if notice := quiz.Profile().Notice(); notice != "" {
		return one("notice", noticePayload{Message: notice})
	}
	return nil
}

func sendNotice(send chan<- outboundMessage[any], quiz *app.QuizApp) {
	for _, msg := range noticeMessages(quiz) {
		send <- msg
	}
}

func invalidPayload(typ string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid " + typ + " payload"}}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: describeError(err)}
}

// describeError pairs the player-facing text with a stable code for clients.
func describeError(err error) errorPayload {
	var (
		validationErr *domain.ValidationError
		loadErr       *domain.LoadError
		authErr       *domain.AuthError
	)
	payload := errorPayload{Message: app.UserMessage(err)}
	switch {
	case errors.As(err, &validationErr):
		payload.Code = "validation/" + validationErr.Reason
	case errors.As(err, &loadErr):
		payload.Code = "load"
	case errors.As(err, &authErr):
		payload.Code = authErr.Code
	case errors.Is(err, domain.ErrNoActiveSession):
		payload.Code = "session/not-started"
	case errors.Is(err, domain.ErrSessionCompleted):
		payload.Code = "session/completed"
	case errors.Is(err, domain.ErrOptionOutOfRange):
		payload.Code = "session/option-out-of-range"
	}
	return payload
}
