package policy

import (
	"fmt"
	"strings"
)

const (
	defaultMaxQueryLength    = 1000
	defaultMaxAgentsPerQuery = 10
)

type Limits struct {
	MaxQueryLength    int
	MaxAgentsPerQuery int
}

func (l Limits) withDefaults() Limits {
	if l.MaxQueryLength <= 0 {
		l.MaxQueryLength = defaultMaxQueryLength
	}
	if l.MaxAgentsPerQuery <= 0 {
		l.MaxAgentsPerQuery = defaultMaxAgentsPerQuery
	}
	return l
}

// Engine decides whether a query is admitted for orchestration.
type Engine struct {
	limits Limits
}

func New(limits Limits) *Engine {
	return &Engine{limits: limits.withDefaults()}
}

func (e *Engine) CanExecuteQuery(query string) (bool, string) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false, "query is empty"
	}
	if len(query) > e.limits.MaxQueryLength {
		return false, fmt.Sprintf("query length %d exceeds limit %d", len(query), e.limits.MaxQueryLength)
	}
	return true, ""
}

func (e *Engine) CanUseAgents(count int) (bool, string) {
	if count > e.limits.MaxAgentsPerQuery {
		return false, fmt.Sprintf("too many agents required: %d > %d", count, e.limits.MaxAgentsPerQuery)
	}
	return true, ""
}
