package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"pmflow/app/expressions/golang"
	"pmflow/app/expressions/jinja"
)

var (
	commandPattern = fmt.Sprintf(`^(%s)`, strings.Join([]string{
		`[\w\.]+[^=\(\s\"]*`,
		golang.AnyRegexp,
		jinja.AnyRegexp,
	}, "|"))
	commandRegex = regexp.MustCompile(commandPattern)

	allInBrackets    = `\[.*\]\s*`
	allInBraces      = `\{[^%{].*\}\s*`
	allInQuotes      = `\"[^\"]*\"\s*`
	allInApostrophes = `'[^']*'\s*`
	_DIGITS          = `-?\d+(\.\d+)?`
	_TRUE            = "true"
	_FALSE           = "false"
	_NULL            = "null"

	allSupportElements = []string{
		allInQuotes, allInApostrophes, allInBrackets, allInBraces,
		_TRUE, _FALSE, _NULL, _DIGITS,
	}

	paramsPattern = fmt.Sprintf("([-_\\w]+)=(%s)", strings.Join(allSupportElements, "|"))
	paramsRegex   = regexp.MustCompile(paramsPattern)
)

func matchCommand(str string) (string, error) {
	matched := commandRegex.FindString(strings.TrimSpace(str))
	if matched == "" {
		return "", errors.New("not found any command")
	}
	return matched, nil
}

func matchParams(str string) map[string]interface{} {
	params := map[string]interface{}{}

	for _, match := range paramsRegex.FindAllStringSubmatch(str, -1) {
		name := strings.TrimSpace(match[1])
		value := strings.TrimSpace(match[2])
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'')) {
			params[name] = value[1 : len(value)-1]
			continue
		}
		var v interface{}
		if err := json.Unmarshal([]byte(value), &v); err == nil {
			params[name] = v
		} else {
			params[name] = value
		}
	}

	return params
}

// ParseScriptRef splits "std.echo output='done' count=2" into the action name
// and its literal parameters.
func ParseScriptRef(ref string) (string, map[string]interface{}, error) {
	cmd, err := matchCommand(ref)
	if err != nil {
		return "", nil, err
	}
	return cmd, matchParams(ref[strings.Index(ref, cmd)+len(cmd):]), nil
}
