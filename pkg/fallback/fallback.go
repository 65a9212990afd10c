package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yitzuliu/tracker/pkg/query"
	"github.com/yitzuliu/tracker/pkg/tracker"
	"github.com/yitzuliu/tracker/pkg/vlmclient"
)

const restoreTimeout = 5 * time.Second

// runFallback performs the save → swap → query → restore protocol and
// assembles the unified response. It is only called once the decision
// engine has already called for a fallback.
func (o *Orchestrator) runFallback(ctx context.Context, rawQuery string, state tracker.StateRecord, present bool, start time.Time) QueryResponse {
	var spanErr error
	ctx, endSpan := startSpan(ctx, "fallback.run_fallback", attribute.Bool("state_present", present))
	defer func() { endSpan(spanErr) }()

	select {
	case o.queue <- struct{}{}:
		defer func() { <-o.queue }()
	default:
		o.logger.Warn("fallback: request queue full, rejecting")
		return neutralResponse(rawQuery, neutralBusy, clampErrorConfidence(apparentConfidence(state, present)), start)
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		spanErr = err
		return neutralResponse(rawQuery, neutralBusy, clampErrorConfidence(apparentConfidence(state, present)), start)
	}
	defer o.sem.Release(1)

	swapCtx, endSwapSpan := startSpan(ctx, "fallback.prompt_swap")

	saved, err := o.vlm.SavePrompt(swapCtx)
	if err != nil {
		o.stats.vlmErrors++
		o.logger.Error("fallback: failed to save vlm prompt", "error", err)
		endSwapSpan(err)
		spanErr = err
		return neutralResponse(rawQuery, neutralVLMUnavailable, clampErrorConfidence(apparentConfidence(state, present)), start)
	}

	promptText, content := o.buildPrompt(ctx, rawQuery)

	if err := o.vlm.SwapPrompt(swapCtx, promptText); err != nil {
		o.stats.vlmErrors++
		o.logger.Error("fallback: failed to swap vlm prompt", "error", err)
		endSwapSpan(err)
		spanErr = err
		return neutralResponse(rawQuery, neutralVLMUnavailable, clampErrorConfidence(apparentConfidence(state, present)), start)
	}
	endSwapSpan(nil)

	// Restoration must run on every exit path, including cancellation of
	// ctx, so it uses a detached context with its own short timeout rather
	// than the caller's (possibly already-cancelled) ctx.
	defer func() {
		restoreCtx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		defer cancel()
		restoreCtx, endRestoreSpan := startSpan(restoreCtx, "fallback.prompt_restore")
		err := o.vlm.RestorePrompt(restoreCtx, saved)
		endRestoreSpan(err)
		if err != nil {
			o.logger.Error("fallback: prompt restore failed", "error", err)
		}
	}()

	queryStart := time.Now()
	queryCtx, endQuerySpan := startSpan(ctx, "fallback.vlm_query")
	responseText, attempts, err := o.vlm.Query(queryCtx, vlmclient.ChatRequest{Content: content})
	endQuerySpan(err)
	o.recordVLMOutcome(attempts, err, elapsedMS(queryStart))

	if err != nil {
		spanErr = err
		o.logger.Warn("fallback: vlm query failed", "error", err, "attempts", attempts)
		return errorResponse(rawQuery, err, clampErrorConfidence(apparentConfidence(state, present)), start)
	}

	return QueryResponse{
		Status:           "success",
		ResponseText:     responseText,
		QueryType:        string(apparentIntent(rawQuery)),
		Confidence:       apparentConfidence(state, present),
		ProcessingTimeMS: elapsedMS(start),
	}
}

// buildPrompt selects the text-only or image-attached fallback prompt and
// builds the corresponding chat content payload.
func (o *Orchestrator) buildPrompt(ctx context.Context, rawQuery string) (promptText string, content any) {
	if !o.cfg.EnableImageFallback || o.images == nil {
		return formatTemplate(o.cfg.FallbackPromptTemplate, map[string]string{"query": rawQuery}), rawQuery
	}

	frame, ok := o.images.Acquire(ctx, o.cfg.ModelTag)
	if !ok {
		return formatTemplate(o.cfg.FallbackPromptTemplate, map[string]string{"query": rawQuery}), rawQuery
	}

	promptText = formatTemplate(o.cfg.ImageFallbackTemplate, map[string]string{
		"query":        rawQuery,
		"image_format": frame.Format,
		"image_size":   fmt.Sprintf("%d", frame.Bytes),
	})

	parts := []vlmclient.ContentPart{
		{Type: "text", Text: rawQuery},
		{Type: "image_url", ImageURL: &vlmclient.ImageURL{
			URL: fmt.Sprintf("data:image/%s;base64,%s", frame.Format, frame.Base64),
		}},
	}
	return promptText, parts
}

func formatTemplate(tmpl string, values map[string]string) string {
	out := tmpl
	for k, v := range values {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

// apparentIntent reuses the Query Processor's classifier, but — per the
// transparency requirement — never reports UNKNOWN in a fallback response;
// an unclassifiable query apparently looks like a HELP request instead.
func apparentIntent(rawQuery string) query.Intent {
	intent := query.Classify(rawQuery)
	if intent == query.IntentUnknown {
		return query.IntentHelp
	}
	return intent
}

// apparentConfidence reports the state's own confidence when it clears the
// gate, or the fixed floor otherwise, so a caller can never infer from the
// confidence value alone that a fallback produced the answer.
func apparentConfidence(state tracker.StateRecord, present bool) float64 {
	if present && state.Similarity >= confidenceThresholdGate {
		return state.Similarity
	}
	return apparentConfidenceFloor
}

func neutralResponse(rawQuery, message string, confidence float64, start time.Time) QueryResponse {
	return QueryResponse{
		Status:           "success",
		ResponseText:     message,
		QueryType:        string(apparentIntent(rawQuery)),
		Confidence:       confidence,
		ProcessingTimeMS: elapsedMS(start),
	}
}

func errorResponse(rawQuery string, err error, confidence float64, start time.Time) QueryResponse {
	message := neutralVLMUnavailable
	if errors.Is(err, vlmclient.ErrVLMParseError) {
		message = neutralGenericError
	}
	return QueryResponse{
		Status:           "success",
		ResponseText:     message,
		QueryType:        string(apparentIntent(rawQuery)),
		Confidence:       confidence,
		ProcessingTimeMS: elapsedMS(start),
	}
}

// clampErrorConfidence keeps error-path confidence within the 0.5-0.6 band
// the error semantics call for, regardless of what the state's own apparent
// confidence would otherwise have been.
func clampErrorConfidence(confidence float64) float64 {
	switch {
	case confidence < 0.5:
		return 0.5
	case confidence > 0.6:
		return 0.6
	default:
		return confidence
	}
}
