package keys_test

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/okian/mocksrv/internal/domain/keys"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCandidates(t *testing.T) {
	Convey("Given the orders history key template", t, func() {
		template := "orders.{symbol}.{start}.{end}.{limit}"

		Convey("When every parameter is present", func() {
			params := keys.Params{"symbol": "tBTCUSD", "start": "1", "end": "2", "limit": "25"}
			got := keys.Candidates(params, template)

			Convey("Then it yields one key per segment, most specific first", func() {
				So(got, ShouldResemble, []string{
					"orders.tBTCUSD.1.2.25",
					"orders.tBTCUSD.1.2",
					"orders.tBTCUSD.1",
					"orders.tBTCUSD",
					"orders",
				})
			})
		})

		Convey("When some parameters are missing", func() {
			got := keys.Candidates(keys.Params{"symbol": "tBTCUSD", "limit": "25"}, template)

			Convey("Then missing placeholders become empty segments, not errors", func() {
				So(got, ShouldResemble, []string{
					"orders.tBTCUSD...25",
					"orders.tBTCUSD..",
					"orders.tBTCUSD.",
					"orders.tBTCUSD",
					"orders",
				})
			})
		})

		Convey("When there are no parameters at all", func() {
			got := keys.Candidates(nil, template)

			Convey("Then the keys are the literal empty-segment forms", func() {
				So(got[0], ShouldEqual, "orders....")
				So(got[len(got)-1], ShouldEqual, "orders")
			})
		})

		Convey("When a parameter value is the empty string", func() {
			withEmpty := keys.Candidates(keys.Params{"symbol": ""}, template)
			withoutKey := keys.Candidates(keys.Params{}, template)

			Convey("Then it is treated exactly like an absent parameter", func() {
				So(withEmpty, ShouldResemble, withoutKey)
			})
		})

		Convey("When resolving the same input twice", func() {
			params := keys.Params{"symbol": "tETHUSD", "end": "9"}

			Convey("Then the sequences are identical", func() {
				So(keys.Candidates(params, template), ShouldResemble, keys.Candidates(params, template))
			})
		})
	})

	Convey("Given templates of varying length", t, func() {
		templates := []string{"tickers", "ticker.{symbol}", "stats.{key}.{context}", "calc.{symbol}.{dir}.{rate}.{type}", "a.b.{c}.d"}
		params := keys.Params{"symbol": "tBTCUSD", "key": "pos.size", "c": "x"}

		Convey("Then every template yields exactly n segment-prefix keys", func() {
			for _, tpl := range templates {
				n := len(strings.Split(tpl, "."))
				got := keys.Candidates(params, tpl)
				So(len(got), ShouldEqual, n)

				full := keys.Substitute(params, tpl)
				for i, k := range got {
					So(k, ShouldEqual, strings.Join(full[:n-i], "."))
				}
			}
		})
	})

	Convey("Given tokens that only look like placeholders", t, func() {
		params := keys.Params{"symbol": "tBTCUSD", "": "empty-name"}

		Convey("Then half-open braces pass through unchanged", func() {
			So(keys.Candidates(params, "x.{symbol.y}")[0], ShouldEqual, "x.{symbol.y}")
			So(keys.Candidates(params, "x.symbol}")[0], ShouldEqual, "x.symbol}")
		})

		Convey("Then a bare brace is not a placeholder", func() {
			So(keys.Candidates(params, "x.{")[0], ShouldEqual, "x.{")
		})

		Convey("Then {} looks up the empty name", func() {
			So(keys.Candidates(params, "x.{}")[0], ShouldEqual, "x.empty-name")
		})
	})
}

func TestPlaceholders(t *testing.T) {
	Convey("Given a key template", t, func() {
		Convey("Then placeholder names are listed in order", func() {
			So(keys.Placeholders("alert_set.{type}.{symbol}.{price}"), ShouldResemble, []string{"type", "symbol", "price"})
			So(keys.Placeholders("wallets"), ShouldBeEmpty)
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given path, query and body parameters", t, func() {
		path := keys.Params{"symbol": "tBTCUSD", "only_path": "p"}
		query := keys.Params{"symbol": "tETHUSD", "limit": "10"}
		body := keys.Params{"limit": "50", "only_body": "b"}

		Convey("When merging in path, query, body order", func() {
			got := keys.Merge(path, query, body)

			Convey("Then later sources win on collision", func() {
				So(got, ShouldResemble, keys.Params{
					"symbol":    "tETHUSD",
					"only_path": "p",
					"limit":     "50",
					"only_body": "b",
				})
			})

			Convey("And the inputs are untouched", func() {
				So(path["symbol"], ShouldEqual, "tBTCUSD")
			})
		})

		Convey("When a source is nil", func() {
			So(keys.Merge(nil, query, nil), ShouldResemble, query)
		})
	})
}

func TestFromQuery(t *testing.T) {
	Convey("Given query values", t, func() {
		v := url.Values{"start": {"1"}, "sort": {"-1", "1"}}

		Convey("Then single values pass through and repeats are comma joined", func() {
			So(keys.FromQuery(v), ShouldResemble, keys.Params{"start": "1", "sort": "-1,1"})
		})
	})
}

func TestFromJSONBody(t *testing.T) {
	Convey("Given a JSON request body", t, func() {
		Convey("When the body is an object of mixed values", func() {
			p, err := keys.FromJSONBody([]byte(`{"symbol":"tBTCUSD","price":1e3,"amount":0.50,"hidden":true,"type":null,"meta":{"a": [1, 2]}}`))

			Convey("Then values are stringified as they read in a key", func() {
				So(err, ShouldBeNil)
				So(p, ShouldResemble, keys.Params{
					"symbol": "tBTCUSD",
					"price":  "1000",
					"amount": "0.5",
					"hidden": "true",
					"type":   "",
					"meta":   "[object Object]",
				})
			})
		})

		Convey("When a field is an array", func() {
			p, err := keys.FromJSONBody([]byte(`{"symbols":["a","b"],"mixed":[1,null,[2,3],true]}`))

			Convey("Then its elements are comma joined", func() {
				So(err, ShouldBeNil)
				So(p["symbols"], ShouldEqual, "a,b")
				So(p["mixed"], ShouldEqual, "1,,2,3,true")
			})
		})

		Convey("When numbers need an exponent or are out of range", func() {
			p, err := keys.FromJSONBody([]byte(`{"big":1e21,"small":1e-7,"edge":0.000001,"neg":-2.50E2,"zero":-0,"huge":1e400}`))

			Convey("Then they take their canonical double form", func() {
				So(err, ShouldBeNil)
				So(p, ShouldResemble, keys.Params{
					"big":   "1e+21",
					"small": "1e-7",
					"edge":  "0.000001",
					"neg":   "-250",
					"zero":  "0",
					"huge":  "Infinity",
				})
			})
		})

		Convey("When valid JSON is followed by trailing data", func() {
			_, err := keys.FromJSONBody([]byte(`{"a":1} junk`))
			_, twoDocs := keys.FromJSONBody([]byte(`{"a":1}{"b":2}`))

			Convey("Then the body is malformed", func() {
				So(errors.Is(err, keys.ErrMalformedBody), ShouldBeTrue)
				So(errors.Is(twoDocs, keys.ErrMalformedBody), ShouldBeTrue)
			})
		})

		Convey("When the body is empty or whitespace", func() {
			p, err := keys.FromJSONBody([]byte("  \n"))
			So(err, ShouldBeNil)
			So(p, ShouldBeEmpty)
		})

		Convey("When the body is not an object", func() {
			p, err := keys.FromJSONBody([]byte(`[1,2,3]`))
			So(err, ShouldBeNil)
			So(p, ShouldBeEmpty)
		})

		Convey("When the body is not JSON", func() {
			_, err := keys.FromJSONBody([]byte(`symbol=tBTCUSD`))
			So(errors.Is(err, keys.ErrMalformedBody), ShouldBeTrue)
		})
	})
}
