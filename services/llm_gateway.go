package services

import (
	"context"
	"errors"
	"time"

	"medpipe_backend/models"
	"medpipe_backend/pkg/logging"
	"medpipe_backend/platform/llm"
	"medpipe_backend/utils"
)

// GatewayTask is the kind of model call, used to pick a model profile.
type GatewayTask string

const (
	GatewayCategorize  GatewayTask = "categorize"
	GatewayCombine     GatewayTask = "combine"
	GatewayAnonymize   GatewayTask = "anonymize"
	GatewayExtract     GatewayTask = "extract"
	GatewayPatientCard GatewayTask = "patient_card"
)

// SelectProfile picks the model for a call. Only categorization looks at
// the input size: above largeAbove tokens it moves to the large context model.
func SelectProfile(task GatewayTask, tokens int, largeAbove int) llm.ModelProfile {
	switch task {
	case GatewayCategorize:
		if tokens > largeAbove {
			return llm.ProfileLarge
		}
		return llm.ProfileStandard
	case GatewayCombine, GatewayExtract, GatewayPatientCard:
		return llm.ProfileLarge
	default:
		return llm.ProfileStandard
	}
}

// Prompt is a system/user template pair with {name} placeholders.
type Prompt struct {
	System string
	User   string
}

type Gateway struct {
	model       llm.LanguageModel
	backoff     time.Duration
	callTimeout time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewGateway(model llm.LanguageModel, backoff, callTimeout time.Duration) *Gateway {
	return &Gateway{
		model:       model,
		backoff:     backoff,
		callTimeout: callTimeout,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Invoke renders prompt with vars and calls the model. A rate limited call
// waits the back-off and is retried exactly once.
func (g *Gateway) Invoke(ctx context.Context, profile llm.ModelProfile, prompt Prompt, vars map[string]string) (string, error) {
	var msgs []llm.Message
	if prompt.System != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: utils.RenderPrompt(prompt.System, vars)})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: utils.RenderPrompt(prompt.User, vars)})

	out, err := g.call(ctx, profile, msgs)
	if err == nil || !errors.Is(err, models.ErrRateLimited) {
		return out, err
	}
	logging.Logger.Warn("rate limited, retrying once", "profile", profile, "backoff", g.backoff)
	if err := g.sleep(ctx, g.backoff); err != nil {
		return "", err
	}
	return g.call(ctx, profile, msgs)
}

func (g *Gateway) call(ctx context.Context, profile llm.ModelProfile, msgs []llm.Message) (string, error) {
	if g.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
	}
	return g.model.Complete(ctx, profile, msgs)
}
