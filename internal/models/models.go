// Package models defines the core data structures for LeadPipe.
//
// It includes the inbound/outbound message types shared across modules and
// the validation errors used at module boundaries.
package models

import (
	"errors"
	"regexp"
)

// MessageType classifies an inbound WhatsApp message.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeDocument MessageType = "document"
)

// MediaPlaceholder is substituted for the body of non-text messages that
// carry no transcription, so the state machine always sees text.
const MediaPlaceholder = "[MEDIA]"

// Validation constants for input validation
const (
	// MaxMessageBodyLength defines the maximum accepted length for an inbound body
	MaxMessageBodyLength = 4096
	// MaxGreetingAttempts caps how often the greeting handler re-asks for identity
	MaxGreetingAttempts = 2
	// MaxAlternativeSlots caps how many alternative slots are offered after a rejection
	MaxAlternativeSlots = 2
)

// Error variables for better error handling and testability
var (
	ErrEmptyRecipient   = errors.New("recipient cannot be empty")
	ErrEmptyBody        = errors.New("message body cannot be empty")
	ErrBodyTooLong      = errors.New("message body exceeds maximum length")
	ErrInvalidEmail     = errors.New("email does not match the accepted pattern")
	ErrUnknownState     = errors.New("unknown conversation state")
	ErrAppointmentFinal = errors.New("appointment already created; scheduling is closed")
	ErrNoSuggestedSlot  = errors.New("no suggested slot pending")
)

// emailPattern is the RFC-lite pattern shared by extraction and validation.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// IsValidEmail reports whether s matches the accepted RFC-lite email shape.
func IsValidEmail(s string) bool {
	return emailPattern.FindString(s) == s && s != ""
}

// EmailPattern exposes the shared email regexp for the extractor.
func EmailPattern() *regexp.Regexp {
	return emailPattern
}

// Message represents an inbound message from a prospect.
type Message struct {
	From     string      `json:"from"`
	Body     string      `json:"body"`
	Type     MessageType `json:"type,omitempty"`
	MediaURL string      `json:"media_url,omitempty"`
	Time     int64       `json:"time"`
}

// NormalizedBody returns the text the state machine should consume: the raw
// body for text messages, the media placeholder otherwise.
func (m Message) NormalizedBody() string {
	if m.Type != "" && m.Type != MessageTypeText && m.Body == "" {
		return MediaPlaceholder
	}
	return m.Body
}

// MessageStatus represents the delivery status of an outbound message.
type MessageStatus string

const (
	StatusTypeSent      MessageStatus = "sent"
	StatusTypeDelivered MessageStatus = "delivered"
	StatusTypeRead      MessageStatus = "read"
)

// Receipt records a delivery status event for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming message response from a prospect, as seen
// by the persistence layer audit trail.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// API response status values.
const (
	APIStatusOK    = "ok"
	APIStatusError = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
