// Package chat implements the conversation orchestrator: retrieval, prompting,
// tool-call handling and session bookkeeping for a single chat exchange.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sauzanniraula/rag-backend/internal/embedding"
	"github.com/sauzanniraula/rag-backend/internal/llm"
	"github.com/sauzanniraula/rag-backend/internal/models"
	"github.com/sauzanniraula/rag-backend/internal/session"
	"github.com/sauzanniraula/rag-backend/internal/storage"
	"github.com/sauzanniraula/rag-backend/internal/vector"
	"github.com/sauzanniraula/rag-backend/pkg/utils"
)

// Defaults for a Service.
const (
	DefaultCollection    = "docs"
	DefaultTopK          = 3
	DefaultHistoryWindow = 6
	DefaultSessionTTL    = time.Hour
)

// Service answers chat queries. It holds no per-session state; history lives in the
// session store. Two concurrent requests on the same session both read the old history
// and the later write wins.
type Service struct {
	embedder embedding.Embedder
	index    vector.VectorIndex
	sessions session.Store
	bookings storage.BookingStore
	model    llm.ChatModel

	collection string
	topK       int
	window     int
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Booking failures are logged at error level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source used for the date in the prompt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCollection sets the collection retrieval reads from.
func WithCollection(name string) Option {
	return func(s *Service) { s.collection = name }
}

// WithTopK sets how many passages are retrieved per query.
func WithTopK(k int) Option {
	return func(s *Service) { s.topK = k }
}

// WithHistoryWindow sets how many stored turns are sent to the model.
func WithHistoryWindow(n int) Option {
	return func(s *Service) { s.window = n }
}

// WithSessionTTL sets the expiry applied on every session write.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// NewService wires the orchestrator to its collaborators.
func NewService(
	embedder embedding.Embedder,
	index vector.VectorIndex,
	sessions session.Store,
	bookings storage.BookingStore,
	model llm.ChatModel,
	opts ...Option,
) *Service {
	s := &Service{
		embedder:   embedder,
		index:      index,
		sessions:   sessions,
		bookings:   bookings,
		model:      model,
		collection: DefaultCollection,
		topK:       DefaultTopK,
		window:     DefaultHistoryWindow,
		ttl:        DefaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// logQueryLen caps how much of a user query is written to the log.
const logQueryLen = 120

func external(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrExternalService, err)
}

// Chat runs one exchange and returns the answer. Failures of the session store, embedder,
// vector index or model abort the exchange and nothing is written. A booking that cannot
// be stored is reported to the user in the answer instead.
func (s *Service) Chat(ctx context.Context, sessionID, query string) (string, error) {
	history, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", external("failed to load session", err)
	}

	passages, err := s.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	messages := buildMessages(systemPrompt(s.now(), strings.Join(texts, "\n")), history, s.window, query)
	completion, err := s.model.Complete(ctx, messages, []llm.Tool{bookingTool})
	if err != nil {
		return "", external("failed to get completion", err)
	}

	var answer string
	switch {
	case len(completion.ToolCalls) > 0:
		answer = s.book(ctx, sessionID, completion.ToolCalls[0])
	case looksLikeIncompleteBooking(query, completion.Content):
		answer = fmt.Sprintf(guidanceFormat, completion.Content)
	default:
		answer = completion.Content
	}

	history = append(history,
		models.Turn{Role: models.RoleUser, Content: query},
		models.Turn{Role: models.RoleAssistant, Content: answer},
	)
	if err := s.sessions.Set(ctx, sessionID, history, s.ttl); err != nil {
		return "", external("failed to save session", err)
	}
	s.logger.Debug("chat exchange complete",
		zap.String("session_id", sessionID),
		zap.String("query", utils.Truncate(query, logQueryLen)),
		zap.Int("passages", len(passages)),
		zap.Int("history_turns", len(history)),
		zap.Bool("tool_call", len(completion.ToolCalls) > 0))
	return answer, nil
}

// Retrieve embeds query and returns the top passages in rank order.
// An empty or missing collection yields no passages.
func (s *Service) Retrieve(ctx context.Context, query string) ([]models.Passage, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, external("failed to embed query", err)
	}
	hits, err := s.index.Query(ctx, s.collection, vec, s.topK)
	if err != nil {
		return nil, external("failed to query vector index", err)
	}
	passages := make([]models.Passage, 0, len(hits))
	for _, h := range hits {
		p := models.Passage{Position: int(h.ID), Text: h.Text()}
		if src, ok := h.Payload[vector.PayloadSource].(string); ok {
			p.Source = src
		}
		passages = append(passages, p)
	}
	return passages, nil
}

// book handles the tool-call branch and always returns a user-facing answer.
func (s *Service) book(ctx context.Context, sessionID string, call llm.ToolCall) string {
	log := s.logger.With(zap.String("session_id", sessionID), zap.String("tool", call.Name))

	booking, err := decodeBooking(call)
	if err != nil {
		log.Error("booking failed", zap.Error(err))
		return databaseApology
	}
	if fields := models.InvalidFields(booking); len(fields) > 0 {
		log.Warn("booking rejected", zap.Error(booking.Validate()), zap.Strings("fields", fields))
		return missingFieldMessage(fields)
	}
	if err := s.bookings.InsertBooking(ctx, booking); err != nil {
		log.Error("booking failed", zap.Error(fmt.Errorf("%w: %w", models.ErrPersistence, err)))
		return databaseApology
	}
	log.Info("booking stored", zap.String("booking_id", booking.ID), zap.String("date", booking.Date), zap.String("time", booking.Time))
	return fmt.Sprintf(confirmationFormat, booking.Date, booking.Time)
}

var errMalformedToolCall = errors.New("malformed tool call")

// decodeBooking parses the tool arguments into a Booking. Surrounding whitespace is trimmed.
func decodeBooking(call llm.ToolCall) (*models.Booking, error) {
	if call.Name != BookingToolName {
		return nil, fmt.Errorf("%w: unknown tool %q", errMalformedToolCall, call.Name)
	}
	var args struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Date  string `json:"date"`
		Time  string `json:"time"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedToolCall, err)
	}
	return &models.Booking{
		Name:  strings.TrimSpace(args.Name),
		Email: strings.TrimSpace(args.Email),
		Date:  strings.TrimSpace(args.Date),
		Time:  strings.TrimSpace(args.Time),
	}, nil
}
