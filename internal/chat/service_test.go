package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sauzanniraula/rag-backend/internal/embedding"
	"github.com/sauzanniraula/rag-backend/internal/llm"
	"github.com/sauzanniraula/rag-backend/internal/models"
	"github.com/sauzanniraula/rag-backend/internal/session"
	"github.com/sauzanniraula/rag-backend/internal/vector"
)

// fixedEmbedder maps every text to the same vector.
type fixedEmbedder struct {
	vec []float32
	err error
}

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return append([]float32(nil), e.vec...), nil
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int { return len(e.vec) }
func (e *fixedEmbedder) Close() error    { return nil }

// scriptedModel returns queued completions and records every prompt.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*llm.Completion
	err     error
	calls   [][]llm.Message
	tools   [][]llm.Tool
}

func (m *scriptedModel) Complete(ctx context.Context, messages []llm.Message, tools []llm.Tool) (*llm.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, messages)
	m.tools = append(m.tools, tools)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return &llm.Completion{Content: "ok"}, nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

func (m *scriptedModel) lastCall() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

type recordingBookings struct {
	mu       sync.Mutex
	bookings []models.Booking
	err      error
}

func (r *recordingBookings) InsertBooking(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	b.ID = "booking-1"
	r.bookings = append(r.bookings, *b)
	return nil
}

func (r *recordingBookings) Close() error { return nil }

func (r *recordingBookings) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

type fixture struct {
	svc      *Service
	embedder *fixedEmbedder
	index    *vector.MemoryIndex
	sessions *session.MemoryStore
	bookings *recordingBookings
	model    *scriptedModel
}

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		embedder: &fixedEmbedder{vec: []float32{1, 0}},
		index:    vector.NewMemoryIndex(),
		sessions: session.NewMemoryStore(time.Minute),
		bookings: &recordingBookings{},
		model:    &scriptedModel{},
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	f.svc = NewService(f.embedder, f.index, f.sessions, f.bookings, f.model, opts...)
	return f
}

func (f *fixture) seed(t *testing.T, texts ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.index.ReplaceCollection(ctx, DefaultCollection, 2, vector.MetricCosine))
	vectors := [][]float32{{1, 0}, {0.8, 0.6}, {0, 1}, {-1, 0}}
	points := make([]vector.Point, len(texts))
	for i, text := range texts {
		points[i] = vector.Point{ID: uint64(i), Vector: vectors[i], Payload: map[string]any{vector.PayloadText: text, vector.PayloadSource: "faq.txt"}}
	}
	require.NoError(t, f.index.Upsert(ctx, DefaultCollection, points))
}

func toolCall(args string) *llm.Completion {
	return &llm.Completion{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: BookingToolName, Arguments: args}}}
}

const fullBookingArgs = `{"name":"Saujan Prakash","email":"saujan@example.com","date":"2026-10-21","time":"14:30"}`

func TestChat_EmptyIndexPlainAnswer(t *testing.T) {
	f := newFixture(t)
	f.model.replies = []*llm.Completion{{Content: "I could not find a refund policy in the documents."}}

	answer, err := f.svc.Chat(context.Background(), "s1", "What is the refund policy?")
	require.NoError(t, err)
	assert.Equal(t, "I could not find a refund policy in the documents.", answer)
	assert.Equal(t, 0, f.bookings.count())

	system := f.model.lastCall()[0]
	assert.Equal(t, llm.RoleSystem, system.Role)
	assert.True(t, strings.HasSuffix(system.Content, "Context:\n"), "empty context expected, got %q", system.Content)
}

func TestChat_PromptShape(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "first passage", "second passage", "third passage", "fourth passage")

	_, err := f.svc.Chat(context.Background(), "s1", "hello")
	require.NoError(t, err)

	messages := f.model.lastCall()
	require.Len(t, messages, 2)
	want := systemPolicy + "Today's Date: 2026-10-19\n\nContext:\nfirst passage\nsecond passage\nthird passage"
	assert.Equal(t, want, messages[0].Content)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hello"}, messages[1])

	tools := f.model.tools[0]
	require.Len(t, tools, 1)
	assert.Equal(t, "book_interview", tools[0].Name)
	assert.Equal(t, "Saves booking to DB", tools[0].Description)
	assert.Equal(t, []string{"name", "email", "date", "time"}, tools[0].Parameters["required"])
}

func TestChat_Retrieve(t *testing.T) {
	f := newFixture(t, WithTopK(2))
	f.seed(t, "first passage", "second passage", "third passage")

	passages, err := f.svc.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, models.Passage{Position: 0, Text: "first passage", Source: "faq.txt"}, passages[0])
	assert.Equal(t, 1, passages[1].Position)
}

func TestChat_BookingStored(t *testing.T) {
	f := newFixture(t)
	f.model.replies = []*llm.Completion{toolCall(fullBookingArgs)}

	answer, err := f.svc.Chat(context.Background(), "s1", "Book an interview for Saujan Prakash, saujan@example.com, 2026-10-21 at 14:30")
	require.NoError(t, err)
	assert.Equal(t, "✅ Success! Your interview is booked for 2026-10-21 at 14:30.", answer)

	require.Equal(t, 1, f.bookings.count())
	got := f.bookings.bookings[0]
	assert.Equal(t, "Saujan Prakash", got.Name)
	assert.Equal(t, "saujan@example.com", got.Email)
	assert.Equal(t, "2026-10-21", got.Date)
	assert.Equal(t, "14:30", got.Time)
}

func TestChat_BookingPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.bookings.err = errors.New("connection refused")
	f.model.replies = []*llm.Completion{toolCall(fullBookingArgs)}

	answer, err := f.svc.Chat(context.Background(), "s1", "Book me in")
	require.NoError(t, err)
	assert.Equal(t, "⚠️ Booking cannot be placed at the moment due to a database error. Please try again later.", answer)

	turns, _ := f.sessions.Get(context.Background(), "s1")
	require.Len(t, turns, 2)
	assert.Equal(t, answer, turns[1].Content)
}

func TestChat_MalformedToolArguments(t *testing.T) {
	for name, completion := range map[string]*llm.Completion{
		"not json":     toolCall(`{"name": "Ada"`),
		"number field": toolCall(`{"name":"Ada","email":"ada@example.com","date":"2026-10-21","time":1430}`),
		"unknown tool": {ToolCalls: []llm.ToolCall{{Name: "cancel_interview", Arguments: fullBookingArgs}}},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.model.replies = []*llm.Completion{completion}
			answer, err := f.svc.Chat(context.Background(), "s1", "book it")
			require.NoError(t, err)
			assert.Equal(t, databaseApology, answer)
			assert.Equal(t, 0, f.bookings.count())
		})
	}
}

func TestChat_BookingCompletenessGate(t *testing.T) {
	full := map[string]string{"name": "Saujan Prakash", "email": "saujan@example.com", "date": "2026-10-21", "time": "14:30"}
	for _, missing := range []string{"name", "email", "date", "time"} {
		t.Run("model asks for "+missing, func(t *testing.T) {
			f := newFixture(t)
			f.model.replies = []*llm.Completion{{Content: "Booking cannot be placed at the moment. Please provide the " + missing + " and try again."}}

			answer, err := f.svc.Chat(context.Background(), "s1", "Please book an interview")
			require.NoError(t, err)
			assert.Equal(t, 0, f.bookings.count())
			assert.True(t, strings.HasPrefix(answer, " Booking cannot be placed"), answer)
			assert.True(t, strings.HasSuffix(answer, " due to some missing information. Please fill that and try again."), answer)
		})

		t.Run("model calls tool without "+missing, func(t *testing.T) {
			f := newFixture(t)
			args := "{"
			first := true
			for _, k := range []string{"name", "email", "date", "time"} {
				if k == missing {
					continue
				}
				if !first {
					args += ","
				}
				args += `"` + k + `":"` + full[k] + `"`
				first = false
			}
			args += "}"
			f.model.replies = []*llm.Completion{toolCall(args)}

			answer, err := f.svc.Chat(context.Background(), "s1", "Please book an interview")
			require.NoError(t, err)
			assert.Equal(t, 0, f.bookings.count())
			assert.Contains(t, answer, "Please provide the "+missing)
		})
	}

	t.Run("all fields", func(t *testing.T) {
		f := newFixture(t)
		f.model.replies = []*llm.Completion{toolCall(fullBookingArgs)}
		_, err := f.svc.Chat(context.Background(), "s1", "Please book an interview")
		require.NoError(t, err)
		assert.Equal(t, 1, f.bookings.count())
	})
}

func TestChat_InvalidFormatsRejected(t *testing.T) {
	f := newFixture(t)
	f.model.replies = []*llm.Completion{toolCall(`{"name":"Saujan","email":"saujan@example.com","date":"21/10/2026","time":"2pm"}`)}

	answer, err := f.svc.Chat(context.Background(), "s1", "book it")
	require.NoError(t, err)
	assert.Equal(t, "Booking cannot be placed at the moment. Please provide the date (YYYY-MM-DD) and time (HH:MM) and try again.", answer)
	assert.Equal(t, 0, f.bookings.count())
}

func TestChat_GuidanceHeuristic(t *testing.T) {
	tests := []struct {
		name  string
		query string
		reply string
		want  string
	}{
		{"query mentions book", "Can I BOOK a slot?", "Sure, what is your name?", " Sure, what is your name? due to some missing information. Please fill that and try again."},
		{"reply mentions email", "I am Ada", "Please share your Email.", " Please share your Email. due to some missing information. Please fill that and try again."},
		{"reply mentions time", "hi", "What time works?", " What time works? due to some missing information. Please fill that and try again."},
		{"plain answer", "What is the refund policy?", "Refunds take five days.", "Refunds take five days."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.model.replies = []*llm.Completion{{Content: tt.reply}}
			answer, err := f.svc.Chat(context.Background(), "s1", tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer)
		})
	}
}

func TestChat_SessionRoundTripAndWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const exchanges = 5
	for i := 0; i < exchanges; i++ {
		f.model.replies = append(f.model.replies, &llm.Completion{Content: "answer " + string(rune('a'+i))})
		_, err := f.svc.Chat(ctx, "s1", "question "+string(rune('a'+i)))
		require.NoError(t, err)
	}

	turns, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2*exchanges)
	for i := 0; i < exchanges; i++ {
		assert.Equal(t, models.Turn{Role: models.RoleUser, Content: "question " + string(rune('a'+i))}, turns[2*i])
		assert.Equal(t, models.Turn{Role: models.RoleAssistant, Content: "answer " + string(rune('a'+i))}, turns[2*i+1])
	}

	// The fifth call saw 8 stored turns but only the last 6 were sent.
	last := f.model.lastCall()
	require.Len(t, last, 1+DefaultHistoryWindow+1)
	assert.Equal(t, "question b", last[1].Content)
	assert.Equal(t, llm.RoleAssistant, last[2].Role)
	assert.Equal(t, "answer d", last[6].Content)
	assert.Equal(t, "question e", last[7].Content)
}

func TestChat_SessionsIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Chat(ctx, "alice", "hello from alice")
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, "bob", "hello from bob")
	require.NoError(t, err)

	assert.Len(t, f.model.lastCall(), 2, "bob should not see alice's history")
	alice, _ := f.sessions.Get(ctx, "alice")
	assert.Len(t, alice, 2)
}

type failingSessions struct {
	session.Store
	getErr, setErr error
}

func (s *failingSessions) Get(ctx context.Context, id string) ([]models.Turn, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, id)
}

func (s *failingSessions) Set(ctx context.Context, id string, turns []models.Turn, ttl time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Store.Set(ctx, id, turns, ttl)
}

func TestChat_ExternalFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("embedder", func(t *testing.T) {
		f := newFixture(t)
		f.embedder.err = embedding.ErrModelUnavailable
		_, err := f.svc.Chat(ctx, "s1", "hi")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrExternalService)
		assert.ErrorIs(t, err, embedding.ErrModelUnavailable)
		turns, _ := f.sessions.Get(ctx, "s1")
		assert.Empty(t, turns, "nothing is written when the request fails")
	})

	t.Run("model", func(t *testing.T) {
		f := newFixture(t)
		f.model.err = errors.New("rate limited")
		_, err := f.svc.Chat(ctx, "s1", "hi")
		assert.ErrorIs(t, err, models.ErrExternalService)
		turns, _ := f.sessions.Get(ctx, "s1")
		assert.Empty(t, turns)
	})

	t.Run("vector index dimension mismatch", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.index.ReplaceCollection(ctx, DefaultCollection, 3, vector.MetricCosine))
		_, err := f.svc.Chat(ctx, "s1", "hi")
		assert.ErrorIs(t, err, models.ErrExternalService)
	})

	t.Run("session load", func(t *testing.T) {
		f := newFixture(t)
		sessions := &failingSessions{Store: f.sessions, getErr: errors.New("redis down")}
		svc := NewService(f.embedder, f.index, sessions, f.bookings, f.model)
		_, err := svc.Chat(ctx, "s1", "hi")
		assert.ErrorIs(t, err, models.ErrExternalService)
		assert.Empty(t, f.model.calls, "model is not called when history cannot be loaded")
	})

	t.Run("session save", func(t *testing.T) {
		f := newFixture(t)
		sessions := &failingSessions{Store: f.sessions, setErr: errors.New("redis down")}
		svc := NewService(f.embedder, f.index, sessions, f.bookings, f.model)
		_, err := svc.Chat(ctx, "s1", "hi")
		assert.ErrorIs(t, err, models.ErrExternalService)
	})
}

func TestMissingFieldMessage(t *testing.T) {
	assert.Equal(t, "Booking cannot be placed at the moment. Please provide the email and try again.", missingFieldMessage([]string{"email"}))
	assert.Equal(t, "Booking cannot be placed at the moment. Please provide the name, email and time (HH:MM) and try again.",
		missingFieldMessage([]string{"name", "email", "time"}))
	assert.Equal(t, "Booking cannot be placed at the moment. Please provide the booking details and try again.", missingFieldMessage(nil))
}
