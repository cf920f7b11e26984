package jinja

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"pmflow/app/expressions/builtin"

	"github.com/flosch/pongo2/v4"
)

var (
	AnyRegexp   = `\{\%.*\%\}`
	JinjaRegexp = `\{\%(.*?)\%\}`

	reIdentifier = regexp.MustCompile(AnyRegexp)
	reExpression = regexp.MustCompile(JinjaRegexp)
)

func init() {
	// rendered values are data, not HTML
	pongo2.SetAutoescape(false)
}

type JinjaExpression struct {
}

func (e JinjaExpression) Match(expr string) bool {
	return Match(expr)
}

func (e JinjaExpression) Evaluate(expr string, data map[string]interface{}) (interface{}, error) {
	return Evaluate(expr, data)
}

func (e JinjaExpression) EvaluateCondition(expr string, data map[string]interface{}) (bool, error) {
	return EvaluateCondition(expr, data)
}

func Match(expr string) bool {
	return reIdentifier.MatchString(expr)
}

// newContext exposes data both under "_" and as top-level names.
func newContext(data map[string]interface{}) pongo2.Context {
	ctx := pongo2.Context{}
	for k, v := range data {
		ctx[k] = v
	}
	ctx["_"] = data
	for k, v := range builtin.BuiltinFunc {
		ctx[k] = v
	}
	return ctx
}

func execute(tplStr string, data map[string]interface{}) (string, error) {
	tpl, err := pongo2.FromString(tplStr)
	if err != nil {
		return "", err
	}
	return tpl.Execute(newContext(data))
}

func EvaluateReturnInterface(expr string, data map[string]interface{}) (interface{}, error) {
	result, err := execute(expr, data)
	if err != nil {
		return nil, err
	}
	if result == "" {
		return nil, nil
	}

	var published interface{}
	if err := json.Unmarshal([]byte(result), &published); err != nil {
		return nil, fmt.Errorf("%s, output: '%s'", err.Error(), result)
	}
	return published, nil
}

func EvaluateReturnString(expr string, data map[string]interface{}) (interface{}, error) {
	return execute(expr, data)
}

// Evaluate returns the value of a lone "{% expr %}" and renders anything else
// as a string template.
func Evaluate(expr string, data map[string]interface{}) (interface{}, error) {
	matched := reExpression.FindAllStringSubmatchIndex(expr, -1)

	if len(matched) == 1 && matched[0][0] == 0 && matched[0][1] == len(expr) {
		tplStr := fmt.Sprintf(`{{ json(%s) }}`, expr[matched[0][2]:matched[0][3]])
		return EvaluateReturnInterface(tplStr, data)
	}

	exprParts := []string{}
	lastPos := 0
	for i := 0; i < len(matched); i++ {
		values := matched[i]
		exprParts = append(exprParts, expr[lastPos:values[0]])
		exprParts = append(exprParts, fmt.Sprintf(`{{ %s }}`, expr[values[2]:values[3]]))
		lastPos = values[1]
	}
	exprParts = append(exprParts, expr[lastPos:])

	return EvaluateReturnString(strings.Join(exprParts, ""), data)
}

// EvaluateCondition tests a sequence flow condition. Both "{% expr %}" and
// a bare "expr" are accepted.
func EvaluateCondition(expr string, data map[string]interface{}) (bool, error) {
	body := strings.TrimSpace(expr)
	if m := reExpression.FindStringSubmatch(body); m != nil && len(m[0]) == len(body) {
		body = strings.TrimSpace(m[1])
	}
	if body == "" {
		return false, fmt.Errorf("empty condition")
	}
	result, err := execute(fmt.Sprintf(`{%% if %s %%}true{%% else %%}false{%% endif %%}`, body), data)
	if err != nil {
		return false, err
	}
	return result == "true", nil
}
