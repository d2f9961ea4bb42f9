package dto

// ChatResponse is returned for every turn, successful or not.
type ChatResponse struct {
	TurnID     string   `json:"turn_id"`
	TextAnswer string   `json:"text_answer"`
	Charts     []string `json:"charts"` // data:image/png;base64,... URIs
	Error      *string  `json:"error,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func NewErrorChatResponse(turnID, text, errMsg string) ChatResponse {
	return ChatResponse{
		TurnID:     turnID,
		TextAnswer: text,
		Charts:     []string{},
		Error:      &errMsg,
	}
}
