package golang

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"pmflow/app/expressions/builtin"
)

var (
	AnyRegexp    = `\{\{.*\}\}`
	GolangRegexp = `\{\{(.*?)\}\}`

	reIdentifier = regexp.MustCompile(AnyRegexp)
	reExpression = regexp.MustCompile(GolangRegexp)
)

type GolangExpression struct {
}

func (e GolangExpression) Match(expr string) bool {
	return Match(expr)
}

func (e GolangExpression) Evaluate(expr string, data map[string]interface{}) (interface{}, error) {
	return Evaluate(expr, data)
}

func (e GolangExpression) EvaluateCondition(expr string, data map[string]interface{}) (bool, error) {
	return EvaluateCondition(expr, data)
}

func Match(expr string) bool {
	return reIdentifier.MatchString(expr)
}

func execute(expr string, data map[string]interface{}) (*bytes.Buffer, error) {
	tpl, err := template.New("").Funcs(builtin.BuiltinFunc).Option("missingkey=zero").Parse(expr)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0))
	if err := tpl.Execute(buf, data); err != nil {
		return nil, err
	}
	return buf, nil
}

func EvaluateReturnInterface(expr string, data map[string]interface{}) (interface{}, error) {
	buf, err := execute(expr, data)
	if err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return nil, nil
	}

	var published interface{}
	if err := json.Unmarshal(buf.Bytes(), &published); err != nil {
		return nil, fmt.Errorf("%s, output: '%s'", err.Error(), buf.String())
	}
	return published, nil
}

func EvaluateReturnString(expr string, data map[string]interface{}) (interface{}, error) {
	buf, err := execute(expr, data)
	if err != nil {
		return nil, err
	}
	return buf.String(), nil
}

func Evaluate(expr string, data map[string]interface{}) (interface{}, error) {
	matched := reExpression.FindAllStringSubmatchIndex(expr, -1)

	if len(matched) == 1 && matched[0][0] == 0 && matched[0][1] == len(expr) {
		tplStr := fmt.Sprintf(`{{ json (%s) }}`, expr[matched[0][2]:matched[0][3]])
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

// EvaluateCondition tests "{{ pipeline }}" for truth the way {{ if }} does.
func EvaluateCondition(expr string, data map[string]interface{}) (bool, error) {
	body := strings.TrimSpace(expr)
	m := reExpression.FindStringSubmatch(body)
	if m == nil || len(m[0]) != len(body) {
		return false, fmt.Errorf("condition %q is not a single {{ }} expression", expr)
	}
	buf, err := execute(fmt.Sprintf(`{{ if %s }}true{{ else }}false{{ end }}`, m[1]), data)
	if err != nil {
		return false, err
	}
	return buf.String() == "true", nil
}
