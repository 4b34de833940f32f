package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// newEvalContext returns the evaluation context for sweep files. There are
// no variables; only pure collection functions are available.
func newEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"range":    stdlib.RangeFunc,
			"concat":   stdlib.ConcatFunc,
			"distinct": stdlib.DistinctFunc,
			"flatten":  stdlib.FlattenFunc,
			"min":      stdlib.MinFunc,
			"max":      stdlib.MaxFunc,
		},
	}
}

// evalValues evaluates a dimension's values expression into a flat slice.
// The result must be a known, non-null list, set or tuple.
func evalValues(expr hcl.Expression, evalCtx *hcl.EvalContext) ([]cty.Value, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, fmt.Errorf("%s: values must not be null", expr.Range())
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("%s: values must be known at load time", expr.Range())
	}

	ty := val.Type()
	if !ty.IsListType() && !ty.IsSetType() && !ty.IsTupleType() {
		return nil, fmt.Errorf("%s: values must be a list, got %s", expr.Range(), ty.FriendlyName())
	}

	out := make([]cty.Value, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		if v.IsNull() {
			return nil, fmt.Errorf("%s: values must not contain null", expr.Range())
		}
		out = append(out, v)
	}
	return out, nil
}
