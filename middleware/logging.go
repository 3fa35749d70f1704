package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/llmkit-go/llmkit/provider"
	"github.com/llmkit-go/llmkit/streamevent"
)

// LoggingConfig controls the structured logging Layer.
//
// Grounded on the teacher's leveled-logging idiom (bpowers-go-agent/internal/
// logging), adapted to the standard library's log/slog per SPEC_FULL's
// ambient-stack decision.
type LoggingConfig struct {
	Logger *slog.Logger

	// LogContent adds the request's message count to the start record,
	// the response text to the done record, and each streamed text delta
	// at Debug. Request message text and the system prompt are not logged
	// either way. Off by default: this is the one place in the whole
	// middleware stack that logs completion content.
	LogContent bool
}

func (c LoggingConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// LoggingGenerate logs each non-streaming call's model, duration, token
// usage, and outcome.
func LoggingGenerate(cfg LoggingConfig) GenerateLayer {
	log := cfg.logger()
	return LayerFunc[provider.Request, *provider.Response](func(next GenerateService) GenerateService {
		return ServiceFunc[provider.Request, *provider.Response](func(ctx context.Context, req provider.Request) (*provider.Response, error) {
			start := time.Now()
			attrs := []any{"model", req.Model}
			if cfg.LogContent {
				attrs = append(attrs, "messages", len(req.Messages))
			}
			log.Debug("llmkit generate start", attrs...)

			resp, err := next.Handle(ctx, req)
			dur := time.Since(start)
			if err != nil {
				log.Error("llmkit generate failed", "model", req.Model, "duration", dur, "error", err)
				return nil, err
			}

			completed := []any{
				"model", req.Model,
				"duration", dur,
				"finish_reason", resp.FinishReason,
				"prompt_tokens", resp.Usage.PromptTokens,
				"completion_tokens", resp.Usage.CompletionTokens,
			}
			if cfg.LogContent {
				completed = append(completed, "text", resp.Text)
			}
			log.Info("llmkit generate done", completed...)
			return resp, nil
		})
	})
}

// LoggingStream logs stream start (Debug), a failed open (Error) and the
// Done event with the stream's duration (Info); with LogContent it also
// logs each text delta's text at Debug. Close and other event kinds are
// not logged.
func LoggingStream(cfg LoggingConfig) StreamLayer {
	log := cfg.logger()
	return LayerFunc[provider.Request, streamevent.Stream](func(next StreamService) StreamService {
		return ServiceFunc[provider.Request, streamevent.Stream](func(ctx context.Context, req provider.Request) (streamevent.Stream, error) {
			start := time.Now()
			log.Debug("llmkit stream start", "model", req.Model)

			s, err := next.Handle(ctx, req)
			if err != nil {
				log.Error("llmkit stream open failed", "model", req.Model, "error", err)
				return nil, err
			}
			return &loggingStream{Stream: s, log: log, cfg: cfg, model: req.Model, start: start}, nil
		})
	})
}

type loggingStream struct {
	streamevent.Stream
	log   *slog.Logger
	cfg   LoggingConfig
	model string
	start time.Time
}

func (s *loggingStream) Next() (*streamevent.Event, error) {
	ev, err := s.Stream.Next()
	if err != nil {
		return ev, err
	}
	if ev != nil && ev.Kind == streamevent.KindDone {
		s.log.Info("llmkit stream done", "model", s.model, "duration", time.Since(s.start))
	}
	if ev != nil && s.cfg.LogContent && ev.Kind == streamevent.KindTextDelta {
		s.log.Debug("llmkit stream delta", "model", s.model, "text", ev.TextDelta)
	}
	return ev, err
}
