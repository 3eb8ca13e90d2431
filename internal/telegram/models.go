package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ChatID handles chat and user ids sent either as numbers or as strings.
// Mini App clients are inconsistent about it:
// - initData user ids arrive as numbers: 123456
// - query parameters and some bridges send strings: "123456"
type ChatID int64

// UnmarshalJSON implements json.Unmarshaler for ChatID
func (c *ChatID) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*c = ChatID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("ChatID: invalid id %q", s)
		}
		*c = ChatID(n)
		return nil
	}

	return fmt.Errorf("ChatID: cannot unmarshal %s", string(b))
}

// Int64 returns the numeric id
func (c ChatID) Int64() int64 {
	return int64(c)
}

// SendMessageRequest is the body of sendMessage
type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// User represents a Telegram user or bot
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat represents a Telegram chat
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
}

// Message represents a sent message
type Message struct {
	MessageID int64  `json:"message_id"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// ResponseParameters carries retry hints
type ResponseParameters struct {
	RetryAfter      int   `json:"retry_after,omitempty"`
	MigrateToChatID int64 `json:"migrate_to_chat_id,omitempty"`
}

// apiResponse is the envelope of every Bot API response
type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Description string              `json:"description,omitempty"`
	Parameters  *ResponseParameters `json:"parameters,omitempty"`
}
