package tts

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/polly/pollyiface"
)

// Polly synthesizes with Amazon Polly. Credentials come from the standard
// AWS environment/shared config chain.
type Polly struct {
	client pollyiface.PollyAPI
	voice  string
}

func NewPolly(region, voice string) (*Polly, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return newPollyWithClient(polly.New(sess), voice), nil
}

func newPollyWithClient(client pollyiface.PollyAPI, voice string) *Polly {
	if voice == "" {
		voice = "Lea"
	}
	return &Polly{client: client, voice: voice}
}

func (p *Polly) Synthesize(ctx context.Context, text, locale, outputPath string) (string, error) {
	out, err := p.client.SynthesizeSpeechWithContext(ctx, &polly.SynthesizeSpeechInput{
		OutputFormat: aws.String(polly.OutputFormatMp3),
		Text:         aws.String(text),
		VoiceId:      aws.String(p.voice),
		LanguageCode: aws.String(languageTag(locale)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: polly: %w", ErrSynthesisUnavailable, err)
	}
	defer out.AudioStream.Close()

	if err := writeAudio(outputPath, out.AudioStream); err != nil {
		return "", err
	}
	return outputPath, nil
}

func writeAudio(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrSynthesisFailed, path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("%w: write audio: %v", ErrSynthesisFailed, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrSynthesisFailed, path, err)
	}
	return nil
}
