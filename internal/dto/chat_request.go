package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FileData is an attachment sent by the web client.
type FileData struct {
	Data     string `json:"data"` // base64
	MimeType string `json:"mime_type"`
}

type ChatMessage struct {
	Text  string     `json:"text"`
	Files []FileData `json:"files,omitempty"`
}

// HistoryContent is either plain text or a list of attachments.
type HistoryContent struct {
	Text  string
	Files []FileData
}

func (c *HistoryContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = HistoryContent{}
		return nil
	case len(data) > 0 && data[0] == '"':
		c.Files = nil
		return json.Unmarshal(data, &c.Text)
	case len(data) > 0 && data[0] == '[':
		c.Text = ""
		return json.Unmarshal(data, &c.Files)
	}
	return fmt.Errorf("history content must be a string or a list of files, got %s", data)
}

func (c HistoryContent) MarshalJSON() ([]byte, error) {
	if c.Files != nil {
		return json.Marshal(c.Files)
	}
	return json.Marshal(c.Text)
}

type HistoryTurn struct {
	Role    string         `json:"role"` // "user" | "assistant"
	Content HistoryContent `json:"content"`
}

// ChatRequest is the body of POST /chat. Files, History and SystemPrompt are accepted
// for compatibility with the web client but do not influence the answer.
type ChatRequest struct {
	Message      ChatMessage   `json:"message"`
	History      []HistoryTurn `json:"history,omitempty"`
	SystemPrompt *string       `json:"system_prompt,omitempty"`
}
