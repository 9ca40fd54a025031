package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChatStore struct {
	messages []Message
	expenses []RecentExpense
	totals   []CategoryTotal

	totalsErr   error
	expensesErr error
	saveErr     error
}

func (m *mockChatStore) SaveMessage(_ context.Context, userID uuid.UUID, role, content string) (*Message, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	msg := Message{
		ID:        uuid.New(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *mockChatStore) History(_ context.Context, userID uuid.UUID, limit int) ([]Message, error) {
	var out []Message
	for _, msg := range m.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *mockChatStore) RecentExpenses(_ context.Context, _ uuid.UUID, _ int) ([]RecentExpense, error) {
	if m.expensesErr != nil {
		return nil, m.expensesErr
	}
	return m.expenses, nil
}

func (m *mockChatStore) CategoryTotals(_ context.Context, _ uuid.UUID, _ time.Time) ([]CategoryTotal, error) {
	if m.totalsErr != nil {
		return nil, m.totalsErr
	}
	return m.totals, nil
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestAssistant(store ChatStore, gen TextGenerator) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, gen, logger, nil, 30)
}

func TestService_ChatRecordsBothTurns(t *testing.T) {
	store := &mockChatStore{}
	gen := &fakeGenerator{reply: "You spent most on food."}
	svc := newTestAssistant(store, gen)
	userID := uuid.New()

	reply, err := svc.Chat(context.Background(), userID, "Where does my money go?")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, reply.Role)
	assert.Equal(t, "You spent most on food.", reply.Content)

	history, err := svc.History(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "Where does my money go?", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)
}

func TestService_ChatGroundsPromptInSpendingData(t *testing.T) {
	store := &mockChatStore{
		totals: []CategoryTotal{
			{Category: "food", Total: 412.50},
			{Category: "transport", Total: 120.00},
		},
		expenses: []RecentExpense{
			{Name: "Corner Deli", Amount: 14.20, Category: "food", Date: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		},
	}
	gen := &fakeGenerator{reply: "ok"}
	svc := newTestAssistant(store, gen)

	_, err := svc.Chat(context.Background(), uuid.New(), "How much on food?")
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "food: 412.50")
	assert.Contains(t, prompt, "transport: 120.00")
	assert.Contains(t, prompt, "2026-08-20 | Corner Deli | 14.20 | food")
	assert.True(t, strings.HasSuffix(prompt, "Question: How much on food?"))
}

func TestService_ChatDegradesWhenContextReadsFail(t *testing.T) {
	store := &mockChatStore{
		totalsErr:   errors.New("db down"),
		expensesErr: errors.New("db down"),
	}
	gen := &fakeGenerator{reply: "I do not have spending data for you."}
	svc := newTestAssistant(store, gen)

	reply, err := svc.Chat(context.Background(), uuid.New(), "Anything odd?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Content)

	require.Len(t, gen.prompts, 1)
	assert.NotContains(t, gen.prompts[0], "Spending by category")
	assert.NotContains(t, gen.prompts[0], "Most recent expenses")
}

func TestService_ChatModelFailure(t *testing.T) {
	store := &mockChatStore{}
	gen := &fakeGenerator{err: ErrAssistantUnavailable}
	svc := newTestAssistant(store, gen)
	userID := uuid.New()

	_, err := svc.Chat(context.Background(), userID, "hello")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)

	// The user turn is still recorded.
	history, err := svc.History(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, RoleUser, history[0].Role)
}

func TestService_ChatValidatesQuestion(t *testing.T) {
	svc := newTestAssistant(&mockChatStore{}, &fakeGenerator{reply: "ok"})
	userID := uuid.New()

	_, err := svc.Chat(context.Background(), userID, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = svc.Chat(context.Background(), userID, strings.Repeat("a", maxQuestionLength+1))
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestService_ChatRateLimited(t *testing.T) {
	store := &mockChatStore{}
	gen := &fakeGenerator{reply: "ok"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, gen, logger, nil, 1)
	userID := uuid.New()

	_, err := svc.Chat(context.Background(), userID, "first")
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), userID, "second")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Limits are per user, not global.
	_, err = svc.Chat(context.Background(), uuid.New(), "other user")
	assert.NoError(t, err)
}
