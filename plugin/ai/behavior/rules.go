package behavior

import (
	"log/slog"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// Rule kinds.
const (
	RuleKindOpportunity = "opportunity"
	RuleKindRisk        = "risk"
)

// RuleSpec is a user-defined signal rule. Expr is a CEL boolean expression over the
// variables listed in RuleVars.
type RuleSpec struct {
	Name    string
	Kind    string
	Expr    string
	Message string
}

type compiledRule struct {
	spec RuleSpec
	prg  cel.Program
}

// RuleSet holds compiled custom rules, evaluated in configuration order.
type RuleSet struct {
	rules []compiledRule
}

func newRuleEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("streak", cel.IntType),
		cel.Variable("today_percent", cel.IntType),
		cel.Variable("today_minutes", cel.IntType),
		cel.Variable("today_sessions", cel.IntType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("trend", cel.StringType),
		cel.Variable("momentum", cel.StringType),
		cel.Variable("lifetime_minutes", cel.IntType),
		cel.Variable("goal_met", cel.BoolType),
	)
}

// CompileRules type-checks every rule. Any compile error fails the whole set so a
// bad rule is reported at startup rather than silently skipped.
func CompileRules(specs []RuleSpec) (*RuleSet, error) {
	env, err := newRuleEnv()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rule environment")
	}

	rs := &RuleSet{}
	for _, spec := range specs {
		if spec.Kind != RuleKindOpportunity && spec.Kind != RuleKindRisk {
			return nil, errors.Errorf("rule %q: unknown kind %q", spec.Name, spec.Kind)
		}
		ast, iss := env.Compile(spec.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, errors.Wrapf(iss.Err(), "rule %q: compile", spec.Name)
		}
		if ast.OutputType().String() != cel.BoolType.String() {
			return nil, errors.Errorf("rule %q: expression must be bool, got %s", spec.Name, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %q: program", spec.Name)
		}
		rs.rules = append(rs.rules, compiledRule{spec: spec, prg: prg})
	}
	return rs, nil
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// RuleVars builds the CEL activation for a report.
func RuleVars(perf Performance, patterns Patterns, now time.Time) map[string]any {
	trend := ""
	if patterns.Trend != nil {
		trend = string(patterns.Trend.Direction)
	}
	return map[string]any{
		"streak":           int64(perf.Streak),
		"today_percent":    int64(perf.TodayPercent),
		"today_minutes":    int64(perf.TodayMinutes),
		"today_sessions":   int64(perf.TodaySessions),
		"hour":             int64(now.Hour()),
		"weekday":          int64(now.Weekday()),
		"trend":            trend,
		"momentum":         string(patterns.Momentum),
		"lifetime_minutes": int64(perf.LifetimeMinutes),
		"goal_met":         perf.GoalMet,
	}
}

// Evaluate runs every rule against vars and returns matching custom signals split by kind.
// A rule that fails at evaluation time is logged and skipped.
func (rs *RuleSet) Evaluate(vars map[string]any) (opportunities, risks []Signal) {
	if rs == nil {
		return nil, nil
	}
	for _, r := range rs.rules {
		out, _, err := r.prg.Eval(vars)
		if err != nil {
			slog.Warn("custom rule evaluation failed", "rule", r.spec.Name, "error", err)
			continue
		}
		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}
		msg := r.spec.Message
		if msg == "" {
			msg = r.spec.Name
		}
		sig := Signal{Kind: SignalCustom, Message: msg, Rule: r.spec.Name}
		if r.spec.Kind == RuleKindRisk {
			risks = append(risks, sig)
		} else {
			opportunities = append(opportunities, sig)
		}
	}
	return opportunities, risks
}
