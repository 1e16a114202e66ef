// Package stt routes a buffered utterance to the appropriate
// speech-to-text backend: a high-accuracy general transcriber for normal
// commands, or a fast one for short confirmation replies.
package stt

import (
	"context"
	"strings"
)

// Language is a BCP-47-ish hint passed to transcription backends.
type Language string

const (
	LanguageRu Language = "ru"
	LanguageEn Language = "en"
)

// Backend is the capability contract every concrete STT client
// (Groq/OpenAI/Deepgram/AssemblyAI) implements.
type Backend interface {
	Transcribe(ctx context.Context, audioPCM []byte, lang Language) (string, error)
	Name() string
}

// Context selects which backend a transcription request routes to.
type Context string

const (
	ContextGeneral      Context = "general"
	ContextConfirmation Context = "confirmation"
)

// Router dispatches to General for normal utterances and Confirm for the
// short yes/no confirmation sub-dialog.
type Router struct {
	General Backend
	Confirm Backend
	Lang    Language
}

// NewRouter builds a router over the two backend roles.
func NewRouter(general, confirm Backend, lang Language) *Router {
	return &Router{General: general, Confirm: confirm, Lang: lang}
}

// Transcribe routes audioPCM to the backend matching ctxKind, lowercases and
// trims the result.
func (r *Router) Transcribe(ctx context.Context, audioPCM []byte, ctxKind Context) (string, error) {
	backend := r.General
	if ctxKind == ContextConfirmation {
		backend = r.Confirm
	}
	text, err := backend.Transcribe(ctx, audioPCM, r.Lang)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(text)), nil
}
