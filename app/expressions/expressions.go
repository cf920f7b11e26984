package expressions

import (
	"reflect"
	"strings"

	"pmflow/app/expressions/golang"
	"pmflow/app/expressions/jinja"
	"pmflow/pkg/log"
)

type Expression interface {
	Match(expr string) bool
	Evaluate(expr string, data map[string]interface{}) (interface{}, error)
	EvaluateCondition(expr string, data map[string]interface{}) (bool, error)
}

var (
	builtinExpressions = []Expression{
		golang.GolangExpression{},
		jinja.JinjaExpression{},
	}
)

func Evaluate(expr string, dataCtx map[string]interface{}) (interface{}, error) {
	for _, expression := range builtinExpressions {
		if expression.Match(expr) {
			return expression.Evaluate(expr, dataCtx)
		}
	}
	// a bare key
	result, ok := dataCtx[expr]
	if ok {
		return result, nil
	}
	return expr, nil
}

// EvaluateCondition decides a sequence flow condition against the request
// data. Undelimited conditions use the jinja syntax.
func EvaluateCondition(expr string, dataCtx map[string]interface{}) (bool, error) {
	expr = strings.TrimSpace(expr)
	for _, expression := range builtinExpressions {
		if expression.Match(expr) {
			return expression.EvaluateCondition(expr, dataCtx)
		}
	}
	return jinja.EvaluateCondition(expr, dataCtx)
}

func EvaluateRecursively(data interface{}, dataCtx map[string]interface{}) (interface{}, error) {
	switch reflect.ValueOf(data).Kind() {
	case reflect.Slice:
		items, ok := data.([]interface{})
		if !ok {
			return data, nil
		}
		var result []interface{}
		for _, one := range items {
			r, err := EvaluateRecursively(one, dataCtx)
			if err != nil {
				return nil, err
			}
			result = append(result, r)
		}
		return result, nil

	case reflect.String:
		r, err := Evaluate(data.(string), dataCtx)
		if err != nil {
			log.Debugf(nil, "Expression %s is not evaluated, [context=%#v]: %s", data.(string), dataCtx, err.Error())
			return data, nil
		}
		return r, nil

	case reflect.Map:
		items, ok := data.(map[string]interface{})
		if !ok {
			return data, nil
		}
		result := map[string]interface{}{}
		for k, v := range items {
			r, err := EvaluateRecursively(v, dataCtx)
			if err != nil {
				return nil, err
			}
			result[k] = r
		}
		return result, nil

	default:
		return data, nil
	}
}
