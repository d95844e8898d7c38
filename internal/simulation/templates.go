package simulation

import (
	"fmt"

	"github.com/dimasergei/agentiq/internal/domain"
)

type resultTemplate struct {
	kind   domain.ResultKind
	format string
}

// Four fixed result shapes, parameterized by subtask title.
var resultTemplates = []resultTemplate{
	{kind: domain.ResultKindCompletion, format: "Completed %q with all acceptance checks passing"},
	{kind: domain.ResultKindOptimization, format: "Optimized %q and cut the projected runtime by a third"},
	{kind: domain.ResultKindValidation, format: "Validated %q output against historical baselines"},
	{kind: domain.ResultKindDelivery, format: "Delivered %q artifacts to the shared workspace"},
}

// Four fixed insight phrasings, parameterized by task title and agent.
var insightTemplates = []string{
	"%s: %s identified a reusable pattern for future runs",
	"%s: %s flagged an upstream dependency worth caching",
	"%s: %s reports confidence trending above projection",
	"%s: %s suggests parallelizing the remaining workload",
}

func fabricateResult(pick int, subtaskTitle string) domain.SubtaskResult {
	tpl := resultTemplates[pick%len(resultTemplates)]
	return domain.SubtaskResult{
		Kind: tpl.kind,
		Text: fmt.Sprintf(tpl.format, subtaskTitle),
	}
}

func fabricateInsight(pick int, taskTitle, agent string) string {
	return fmt.Sprintf(insightTemplates[pick%len(insightTemplates)], taskTitle, agent)
}
