package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"hyprpilot/internal/actions"
	"hyprpilot/internal/ai"
)

const (
	recentCommandsInPrompt = 5
	interActionDelay       = 100 * time.Millisecond
)

// QueryResult is the outcome of one natural-language query: the plan the
// model produced and one Result per planned action, in plan order.
type QueryResult struct {
	Query       string           `json:"query"`
	Explanation string           `json:"explanation,omitempty"`
	Results     []actions.Result `json:"results"`
	Success     bool             `json:"success"`
	Response    string           `json:"response"`
	Timestamp   time.Time        `json:"timestamp"`
}

// HandleQuery runs the full pipeline: gather context, optionally capture
// the screen, plan, execute sequentially, persist. Planner failures come
// back as a degraded result rather than an error so callers always have
// something to show.
func (d *Daemon) HandleQuery(ctx context.Context, query string, withScreenshot bool) QueryResult {
	d.queryMu.Lock()
	defer d.queryMu.Unlock()

	start := time.Now()
	d.log.Info("handling query", zap.String("query", query))

	bundle := d.buildBundle(ctx, withScreenshot)

	plan, err := d.planner.GenerateActions(ctx, query, bundle)
	if err != nil {
		d.log.Warn("planning failed", zap.Error(err))
		res := QueryResult{
			Query:     query,
			Success:   false,
			Response:  planFailureMessage(err),
			Timestamp: start,
		}
		d.persistQuery(ctx, query, res)
		return res
	}
	d.log.Info("plan ready",
		zap.Int("actions", len(plan.Actions)),
		zap.String("explanation", plan.Explanation))

	results := make([]actions.Result, 0, len(plan.Actions))
	for i, spec := range plan.Actions {
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interActionDelay):
			}
		}
		results = append(results, d.executor.Execute(ctx, spec))
	}

	res := QueryResult{
		Query:       query,
		Explanation: plan.Explanation,
		Results:     results,
		Success:     allSucceeded(results),
		Response:    summarize(plan.Explanation, results),
		Timestamp:   start,
	}
	d.persistQuery(ctx, query, res)
	d.log.Info("query done",
		zap.Int("actions", len(results)),
		zap.Bool("success", res.Success),
		zap.Duration("took", time.Since(start)))
	return res
}

func (d *Daemon) buildBundle(ctx context.Context, withScreenshot bool) ai.ContextBundle {
	desktop := d.compositor.GetSnapshot()
	system := d.sampler.GetState(ctx)

	recent, err := d.store.RecentCommands(ctx, recentCommandsInPrompt)
	if err != nil {
		d.log.Warn("could not read recent commands", zap.Error(err))
	}

	bundle := ai.ContextBundle{
		Desktop:     &desktop,
		System:      &system,
		Keybindings: d.store.Keybindings(),
		Recent:      recent,
	}
	if withScreenshot {
		shot, err := d.executor.CaptureScreen(ctx, false)
		if err != nil {
			d.log.Warn("screenshot capture failed, continuing without", zap.Error(err))
		} else {
			bundle.Screenshot = shot
		}
	}
	return bundle
}

// persistQuery writes the conversation turns and one command record per
// executed action. Persistence failures are logged, never surfaced.
func (d *Daemon) persistQuery(ctx context.Context, query string, res QueryResult) {
	if err := d.store.AddConversationTurn(ctx, "user", query); err != nil {
		d.log.Warn("persist user turn failed", zap.Error(err))
	}
	if err := d.store.AddConversationTurn(ctx, "assistant", res.Response); err != nil {
		d.log.Warn("persist assistant turn failed", zap.Error(err))
	}
	for _, r := range res.Results {
		output := r.Output
		if !r.Success {
			output = r.Error
		}
		if err := d.store.AddCommand(ctx, query, string(r.Action.Type), r.Success, output); err != nil {
			d.log.Warn("persist command record failed", zap.Error(err))
		}
	}
}

func allSucceeded(results []actions.Result) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

// summarize builds the user-facing response: the model's explanation when
// it gave one, then any failures.
func summarize(explanation string, results []actions.Result) string {
	var parts []string
	if explanation != "" {
		parts = append(parts, explanation)
	}
	for _, r := range results {
		if !r.Success {
			parts = append(parts, fmt.Sprintf("%s failed: %s", r.Action.Type, r.Error))
		}
	}
	if len(parts) == 0 {
		return "Done."
	}
	return strings.Join(parts, "\n")
}

func planFailureMessage(err error) string {
	if errors.Is(err, ai.ErrMalformedResponse) {
		return "I could not turn that request into a valid action plan. Try rephrasing it."
	}
	return "Planning failed: " + err.Error()
}
