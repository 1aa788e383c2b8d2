package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// OpenAI implements Backend on the OpenAI API. Every call carries a
// bounded timeout so a stalled backend can never wedge a learner's
// message queue.
type OpenAI struct {
	client      openai.Client
	chatModel   string
	speechModel string
	voice       string
	timeout     time.Duration
	log         *zap.Logger
}

// NewOpenAI creates a backend with the given models and per-call timeout.
func NewOpenAI(apiKey, chatModel, speechModel, voice string, timeout time.Duration, log *zap.Logger) *OpenAI {
	return &OpenAI{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		chatModel:   chatModel,
		speechModel: speechModel,
		voice:       voice,
		timeout:     timeout,
		log:         log,
	}
}

func (o *OpenAI) ChatComplete(ctx context.Context, system string, history []Message, input string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, m := range history {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(input))

	started := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(o.chatModel),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.log.Debug("chat completion",
		zap.Duration("took", time.Since(started)),
		zap.Int("history", len(history)),
		zap.Int("reply_len", len(reply)))
	return reply, nil
}

func (o *OpenAI) Transcribe(ctx context.Context, audio []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "voice.ogg", "audio/ogg"),
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(o.speechModel),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatOpus,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Body.Close()
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: read body: %w", err)
	}
	return audio, nil
}
