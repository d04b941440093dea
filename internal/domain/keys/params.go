package keys

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Params is the flat parameter set of one request.
type Params map[string]string

// Merge folds sources left to right into a new Params; on a name collision
// the later source wins. Nil sources are skipped.
func Merge(sources ...Params) Params {
	n := 0
	for _, s := range sources {
		n += len(s)
	}
	out := make(Params, n)
	for _, s := range sources {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// FromQuery flattens query values. Repeated names are joined with commas.
func FromQuery(values url.Values) Params {
	out := make(Params, len(values))
	for k, vs := range values {
		out[k] = strings.Join(vs, ",")
	}
	return out
}

// FromJSONBody extracts the top-level fields of a JSON object body.
// Empty bodies and non-object documents carry no parameters. Trailing data
// after the document is malformed. Values are rendered the way they read
// when joined into a key: strings verbatim, numbers in canonical form, null
// as "", arrays as their comma joined elements and objects as
// "[object Object]".
func FromJSONBody(body []byte) (Params, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrMalformedBody)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, nil
	}
	out := make(Params, len(obj))
	for k, v := range obj {
		out[k] = segment(v)
	}
	return out, nil
}

func segment(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return canonicalNumber(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = segment(e)
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// canonicalNumber prints n as a double in shortest round-trip form: plain
// decimal between 1e-6 and 1e21, exponent form outside, e.g. 1e3 -> "1000",
// 1e21 -> "1e+21", 1e-7 -> "1e-7".
func canonicalNumber(n json.Number) string {
	f, err := strconv.ParseFloat(n.String(), 64)
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case err != nil:
		return n.String()
	case f == 0:
		return "0"
	}

	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}
