package server

import (
	"encoding/json"
	"time"

	"github.com/mindpath-ai/mindpath/internal/profile"
)

// HTTPError is the unified error body returned by all endpoints.
type HTTPError struct {
	Error string `json:"error"`
}

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse mirrors what the pipeline accepted: updates is never null so
// clients can test length without a nil check.
type ChatResponse struct {
	Response string           `json:"response"`
	Updates  []profile.Update `json:"updates"`
}

// SubDimensionView is one sub-dimension row in the profile display payload.
type SubDimensionView struct {
	Key             string  `json:"key"`
	IsCustom        bool    `json:"is_custom"`
	LevelLabel      string  `json:"level_label"`
	LevelScore      int     `json:"level_score"`
	ContentLayer    string  `json:"content_layer"`
	LearningNature  *string `json:"learning_nature"`
	CognitiveState  *string `json:"cognitive_state"`
	MotivationState *string `json:"motivation_state"`
}

// DomainView aggregates one domain for the profile page.
type DomainView struct {
	DomainID      int                `json:"domain_id"`
	DomainName    string             `json:"domain_name"`
	AvgScore      float64            `json:"avg_score"`
	PriorityScore int                `json:"priority_score"`
	PriorityNotes *string            `json:"priority_notes"`
	SubDims       []SubDimensionView `json:"sub_dims"`
}

type ProfileResponse struct {
	Domains []DomainView `json:"domains"`
}

type ConversationView struct {
	ID            string          `json:"id"`
	Role          string          `json:"role"`
	Content       string          `json:"content"`
	TriggerMode   string          `json:"trigger_mode"`
	ProfileUpdate json.RawMessage `json:"profile_update,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ConversationsResponse struct {
	Turns []ConversationView `json:"turns"`
}
