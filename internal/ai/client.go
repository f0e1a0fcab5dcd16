package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/tidings-app/tidings/internal/models"
	"github.com/tidings-app/tidings/internal/recur"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (c *Client) SetModel(model string) {
	c.model = model
}

// ComposeRequest carries the context the composer turns into a greeting.
type ComposeRequest struct {
	GroupName   string
	Occasion    string
	BaseMessage string
	Recurrence  string
	Date        string
}

const composeSystemPrompt = `You write short, warm greeting messages that are sent to a group of friends or family on a schedule.

Rules:
- Plain text only, no markdown, no emoji spam (at most one emoji).
- Two sentences maximum, under 300 characters.
- Mention the occasion naturally when one is given.
- If a base message is provided, keep its intent and tone; polish, don't replace.
- Never mention that you are an AI or that the message is automated.`

// ComposeGreeting produces the final message text for one firing. The
// reference date is injected by the caller so composition stays reproducible.
func (c *Client) ComposeGreeting(ctx context.Context, req ComposeRequest) (string, error) {
	userMsg := fmt.Sprintf("Group: %s\nOccasion: %s\nDate: %s\nSchedule: %s\nBase message: %s",
		req.GroupName, req.Occasion, req.Date, req.Recurrence, req.BaseMessage)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: composeSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userMsg,
			},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from AI")
	}

	return resp.Choices[0].Message.Content, nil
}

// Suggestion is one AI-proposed schedule. RRule is an RFC 5545 recurrence
// rule, or empty for a one-time schedule.
type Suggestion struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	RRule     string `json:"rrule"`
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`
}

const suggestSystemPromptTemplate = `You help set up message schedules for a contact group. Given a description of the group, propose schedules worth creating: recurring check-ins, birthday or holiday greetings, and similar.

Today's date: %s

Rules for each suggestion:
- name: a short label.
- message: the greeting text to send, plain text.
- rrule: an RFC 5545 RRULE string such as "FREQ=WEEKLY;BYDAY=MO" or "FREQ=YEARLY;BYMONTH=12". Use FREQ of DAILY, WEEKLY, MONTHLY, or YEARLY only. WEEKLY needs BYDAY; MONTHLY needs BYMONTHDAY. Use UNTIL for an end date, never COUNT. Leave rrule empty for a one-time schedule.
- start_date: the first occurrence date as YYYY-MM-DD, today or later.
- start_time: HH:MM 24-hour wall clock.

Propose at most five suggestions, none for occasions that already passed this year.`

// JSON Schema for structured output
var suggestionsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"suggestions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {
						"type": "string",
						"description": "Short label for the schedule"
					},
					"message": {
						"type": "string",
						"description": "Greeting text to send"
					},
					"rrule": {
						"type": "string",
						"description": "RFC 5545 RRULE, empty string for one-time"
					},
					"start_date": {
						"type": "string",
						"description": "First occurrence date, YYYY-MM-DD"
					},
					"start_time": {
						"type": "string",
						"description": "Wall-clock send time, HH:MM"
					}
				},
				"required": ["name", "message", "rrule", "start_date", "start_time"],
				"additionalProperties": false
			}
		}
	},
	"required": ["suggestions"],
	"additionalProperties": false
}`)

// SuggestSchedules asks the model for schedule ideas matching a free-form
// group description and returns them as structured suggestions.
func (c *Client) SuggestSchedules(ctx context.Context, groupName, description string, now time.Time) ([]Suggestion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(suggestSystemPromptTemplate, now.Format("2006-01-02 (Monday)")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Group: %s\n%s", groupName, description),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "schedule_suggestions",
				Schema: suggestionsSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	var out struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	return out.Suggestions, nil
}

// Schedule converts a suggestion into a validated schedule owned by the
// group. The caller assigns the id before persisting.
func (s *Suggestion) Schedule(groupID string) (*models.Schedule, error) {
	sch := &models.Schedule{
		GroupID:   groupID,
		Type:      models.ScheduleOneTime,
		Name:      s.Name,
		Message:   s.Message,
		StartDate: s.StartDate,
		StartTime: s.StartTime,
		Enabled:   true,
	}
	if s.RRule != "" {
		freq, endDate, err := recur.FrequencyFromRRule(s.RRule)
		if err != nil {
			return nil, fmt.Errorf("suggestion %q: %w", s.Name, err)
		}
		sch.Type = models.ScheduleRecurring
		sch.Frequency = freq
		sch.EndDate = endDate
	}
	if err := sch.Validate(); err != nil {
		return nil, fmt.Errorf("suggestion %q: %w", s.Name, err)
	}
	return sch, nil
}
