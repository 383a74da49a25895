package router

import (
	"fmt"

	"github.com/credik/underwrite/model"
	"github.com/oliveagle/jsonpath"
)

type Op string

const OP_TRUE Op = "true"
const OP_GTE Op = "gte"
const OP_LTE Op = "lte"
const OP_NEQ Op = "neq"

// Gate is a declarative business predicate over one stage's result. The
// comparand comes from the record's business-rules snapshot when Rule is
// set, otherwise from Value, so evaluation depends only on the result and
// the snapshot and the audit trail can reconstruct it.
type Gate struct {
	Condition string
	Path      string
	Op        Op
	Value     any
	Rule      func(rules model.BusinessRules) any
}

func (g Gate) comparand(rules model.BusinessRules) any {
	if g.Rule != nil {
		return g.Rule(rules)
	}
	return g.Value
}

// Passes evaluates the gate against a stage result. A path that does not
// resolve fails the gate; absence of the gated value is never a proceed.
func (g Gate) Passes(result map[string]any, rules model.BusinessRules) bool {
	value, err := jsonpath.JsonPathLookup(map[string]any(result), g.Path)
	if err != nil {
		return false
	}
	switch g.Op {
	case OP_TRUE:
		b, ok := value.(bool)
		return ok && b
	case OP_GTE:
		return toFloat(value) >= toFloat(g.comparand(rules))
	case OP_LTE:
		return toFloat(value) <= toFloat(g.comparand(rules))
	case OP_NEQ:
		return fmt.Sprintf("%v", value) != fmt.Sprintf("%v", g.comparand(rules))
	default:
		return false
	}
}

func (g Gate) Describe(rules model.BusinessRules) string {
	switch g.Op {
	case OP_TRUE:
		return fmt.Sprintf("%s (%s is true)", g.Condition, g.Path)
	case OP_NEQ:
		return fmt.Sprintf("%s (%s != %v)", g.Condition, g.Path, g.comparand(rules))
	case OP_LTE:
		return fmt.Sprintf("%s (%s <= %v)", g.Condition, g.Path, g.comparand(rules))
	default:
		return fmt.Sprintf("%s (%s >= %v)", g.Condition, g.Path, g.comparand(rules))
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
