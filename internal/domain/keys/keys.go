// Package keys turns a key template and a request's parameters into the
// ordered list of store keys to try, most specific first.
//
// A key template is a dot separated list of segments. Segments written as
// {name} are placeholders and take the value of the request parameter name.
// Missing parameters become empty segments, so "orders.{symbol}" with no
// symbol resolves to "orders." and then "orders".
package keys

import "strings"

const (
	// Separator splits key templates and candidate keys into segments.
	Separator = "."

	placeholderOpen  = '{'
	placeholderClose = '}'
)

// Candidates returns one lookup key per template segment: the fully
// substituted key first, then the same key with its last segment dropped,
// down to the first segment alone.
func Candidates(params Params, template string) []string {
	tokens := Substitute(params, template)

	out := make([]string, 0, len(tokens))
	for n := len(tokens); n > 0; n-- {
		out = append(out, strings.Join(tokens[:n], Separator))
	}
	return out
}

// Substitute splits template into segments and replaces placeholders with
// parameter values. Unknown names yield "".
func Substitute(params Params, template string) []string {
	tokens := strings.Split(template, Separator)
	for i, tok := range tokens {
		if name, ok := placeholder(tok); ok {
			tokens[i] = params[name]
		}
	}
	return tokens
}

// Placeholders lists the parameter names referenced by template, in order.
func Placeholders(template string) []string {
	var names []string
	for _, tok := range strings.Split(template, Separator) {
		if name, ok := placeholder(tok); ok {
			names = append(names, name)
		}
	}
	return names
}

func placeholder(tok string) (string, bool) {
	if len(tok) < 2 || tok[0] != placeholderOpen || tok[len(tok)-1] != placeholderClose {
		return "", false
	}
	return tok[1 : len(tok)-1], true
}
