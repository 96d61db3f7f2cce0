package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"

	"server-bonjour/pkg/retrylimit"
)

// Google synthesizes with the Cloud Text-to-Speech API.
type Google struct {
	svc   *texttospeech.Service
	voice string
}

func NewGoogle(ctx context.Context, apiKey, voice string, opts ...option.ClientOption) (*Google, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return &Google{svc: svc, voice: voice}, nil
}

func (g *Google) Synthesize(ctx context.Context, text, locale, outputPath string) (string, error) {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: languageTag(locale),
			Name:         g.voice,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			err = &retrylimit.StatusError{Code: apiErr.Code, Err: err}
		}
		return "", fmt.Errorf("%w: google tts: %w", ErrSynthesisUnavailable, err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return "", fmt.Errorf("%w: decode audio content: %v", ErrSynthesisFailed, err)
	}

	if err := writeAudio(outputPath, bytes.NewReader(audio)); err != nil {
		return "", err
	}
	return outputPath, nil
}
