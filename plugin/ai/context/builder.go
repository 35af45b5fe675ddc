package context

import (
	"context"
	"time"

	"github.com/hrygo/focusmind/plugin/ai/behavior"
	"github.com/hrygo/focusmind/plugin/ai/memory"
)

// Assembler is the engine surface consumed by the assistant layer.
type Assembler interface {
	// BuildContext returns the full system prompt context.
	BuildContext(ctx context.Context) string

	// Build returns the full context with its token estimate.
	Build(ctx context.Context) *ContextResult

	// InvalidateCache drops every cached tier.
	InvalidateCache()

	// RecordConversationOutcome feeds a finished conversation into memory and the profile.
	RecordConversationOutcome(ctx context.Context, intent string, actionsExecuted []string, satisfaction *bool)

	// RecordFeedback counts explicit positive or negative feedback.
	RecordFeedback(ctx context.Context, positive bool)

	// LearnFromAction records a user action.
	LearnFromAction(ctx context.Context, action string, ac memory.ActionContext)

	// GenerateIntelligenceReport analyzes the current activity data.
	GenerateIntelligenceReport(ctx context.Context) behavior.IntelligenceReport

	// GetStats returns context building statistics.
	GetStats() *ContextStats
}

// ContextResult contains the built context.
type ContextResult struct {
	Context     string
	TotalTokens int
	BuildTime   time.Duration
}

// ContextStats tracks context building metrics.
type ContextStats struct {
	TotalBuilds      int64         `json:"total_builds"`
	AverageTokens    float64       `json:"average_tokens"`
	CacheHits        int64         `json:"cache_hits"`
	AverageBuildTime time.Duration `json:"average_build_time"`
}
