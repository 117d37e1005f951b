package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/sauzanniraula/rag-backend/internal/llm"
	"github.com/sauzanniraula/rag-backend/internal/models"
)

// BookingToolName is the only tool offered to the model.
const BookingToolName = "book_interview"

const systemPolicy = "You are a professional RAG assistant.\n" +
	"1. Answer questions using the provided Context.\n" +
	"2. To book an interview, you MUST have exactly: Name, Email, Date (YYYY-MM-DD), and Time (HH:MM).\n" +
	"3. If ANY of these 4 fields are missing or unclear, tell the user: " +
	"'Booking cannot be placed at the moment. Please provide the [missing field] and try again.'\n" +
	"4. If the user provides all info, call the 'book_interview' tool immediately.\n"

// Answer templates.
const (
	confirmationFormat = "✅ Success! Your interview is booked for %s at %s."
	databaseApology    = "⚠️ Booking cannot be placed at the moment due to a database error. Please try again later."
	guidanceFormat     = " %s due to some missing information. Please fill that and try again."
	missingFieldFormat = "Booking cannot be placed at the moment. Please provide the %s and try again."
)

// bookingTool describes book_interview: four required string fields.
var bookingTool = llm.Tool{
	Name:        BookingToolName,
	Description: "Saves booking to DB",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"email": map[string]any{"type": "string"},
			"date":  map[string]any{"type": "string"},
			"time":  map[string]any{"type": "string"},
		},
		"required": []string{"name", "email", "date", "time"},
	},
}

// bookingIntentWords trigger the guidance suffix when found in the model's reply.
var bookingIntentWords = []string{"email", "date", "time"}

// systemPrompt renders the policy, today's date and the retrieved context.
func systemPrompt(now time.Time, context string) string {
	return systemPolicy +
		"Today's Date: " + now.Format(models.DateLayout) + "\n\n" +
		"Context:\n" + context
}

// buildMessages returns the system prompt, the last window turns of history and the query.
func buildMessages(system string, history []models.Turn, window int, query string) []llm.Message {
	recent := models.LastTurns(history, window)
	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, t := range recent {
		role := llm.RoleUser
		if t.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: query})
}

// looksLikeIncompleteBooking reports whether a plain reply should get the guidance suffix.
func looksLikeIncompleteBooking(query, reply string) bool {
	if strings.Contains(strings.ToLower(query), "book") {
		return true
	}
	reply = strings.ToLower(reply)
	for _, w := range bookingIntentWords {
		if strings.Contains(reply, w) {
			return true
		}
	}
	return false
}

var fieldHints = map[string]string{
	"date": "date (YYYY-MM-DD)",
	"time": "time (HH:MM)",
}

// missingFieldMessage names the rejected fields, e.g. "Please provide the email and date (YYYY-MM-DD)".
func missingFieldMessage(fields []string) string {
	named := make([]string, len(fields))
	for i, f := range fields {
		if hint, ok := fieldHints[f]; ok {
			named[i] = hint
		} else {
			named[i] = f
		}
	}
	var list string
	switch len(named) {
	case 0:
		list = "booking details"
	case 1:
		list = named[0]
	default:
		list = strings.Join(named[:len(named)-1], ", ") + " and " + named[len(named)-1]
	}
	return fmt.Sprintf(missingFieldFormat, list)
}
