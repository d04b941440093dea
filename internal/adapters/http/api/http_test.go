package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mocksrv/internal/adapters/http/api"
	"github.com/okian/mocksrv/internal/adapters/repository"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func do(h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestResolveRoutes(t *testing.T) {
	Convey("Given an API server over a memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		h := api.NewServer(store).Handler()

		Convey("When the most specific key is configured", func() {
			So(store.Set(ctx, "ticker.tBTCUSD", `[ 1, 2, 3 ]`), ShouldBeNil)
			So(store.Set(ctx, "ticker", `[0]`), ShouldBeNil)
			rec := do(h, http.MethodGet, "/v2/ticker/tBTCUSD", "", nil)

			Convey("Then its compacted payload is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				So(rec.Body.String(), ShouldEqual, `[1,2,3]`)
			})
		})

		Convey("When only a shorter prefix is configured", func() {
			So(store.Set(ctx, "ticker", `{"any":true}`), ShouldBeNil)
			rec := do(h, http.MethodGet, "/v2/ticker/tETHUSD", "", nil)

			Convey("Then the lookup falls back to it", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `{"any":true}`)
			})
		})

		Convey("When the specific key holds the null marker", func() {
			So(store.Set(ctx, "ticker.tBTCUSD", ""), ShouldBeNil)
			So(store.Set(ctx, "ticker", `"fallback"`), ShouldBeNil)
			rec := do(h, http.MethodGet, "/v2/ticker/tBTCUSD", "", nil)

			Convey("Then it falls through to the next candidate", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `"fallback"`)
			})
		})

		Convey("When nothing is configured", func() {
			rec := do(h, http.MethodGet, "/v2/ticker/tETHUSD", "", nil)

			Convey("Then 404 lists every tried key in order", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				body := decodeError(rec)
				So(body["error"], ShouldEqual, "unknown arguments")
				So(body["keys"], ShouldResemble, []any{"ticker.tETHUSD", "ticker"})
			})
		})

		Convey("When the matched value is not JSON", func() {
			So(store.Set(ctx, "tickers", `{nope`), ShouldBeNil)
			rec := do(h, http.MethodGet, "/v2/tickers", "", nil)

			Convey("Then 500 bad response json is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(rec), ShouldResemble, map[string]any{"error": "bad response json"})
			})
		})

		Convey("When an authenticated route receives a JSON body", func() {
			So(store.Set(ctx, "orders.tBTCUSD.1.2.25", `[42]`), ShouldBeNil)
			rec := do(h, http.MethodPost, "/v2/auth/r/orders/tBTCUSD/hist",
				`{"start":1,"end":2,"limit":25}`, map[string]string{"Content-Type": "application/json"})

			Convey("Then body fields bind placeholders", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `[42]`)
			})
		})

		Convey("When sources collide", func() {
			So(store.Set(ctx, "ticker.fromQuery", `"query"`), ShouldBeNil)
			So(store.Set(ctx, "alert_del.fromBody.1", `"body"`), ShouldBeNil)

			q := do(h, http.MethodGet, "/v2/ticker/fromPath?symbol=fromQuery", "", nil)
			b := do(h, http.MethodPost, "/v2/auth/w/alert/del?symbol=fromQuery&price=1",
				`{"symbol":"fromBody"}`, map[string]string{"Content-Type": "application/json"})

			Convey("Then later sources win", func() {
				So(q.Body.String(), ShouldEqual, `"query"`)
				So(b.Body.String(), ShouldEqual, `"body"`)
			})
		})

		Convey("When placeholders are unbound", func() {
			So(store.Set(ctx, "alerts.", `["empty"]`), ShouldBeNil)
			rec := do(h, http.MethodPost, "/v2/auth/r/alerts", "", nil)

			Convey("Then the empty segment is kept in the key", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `["empty"]`)
			})
		})

		Convey("When the performance route is called", func() {
			So(store.Set(ctx, "performance", `[1.5]`), ShouldBeNil)
			rec := do(h, http.MethodPost, "/v2/auth/r/stats/perf:1D/hist", "", nil)

			Convey("Then the literal path is matched", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `[1.5]`)
			})
		})

		Convey("When the body is malformed JSON", func() {
			rec := do(h, http.MethodPost, "/v2/auth/r/wallets", `{"broken`, map[string]string{"Content-Type": "application/json"})

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(rec)["error"], ShouldEqual, "malformed request body")
			})
		})

		Convey("When the body is not declared as JSON", func() {
			So(store.Set(ctx, "wallets", `[]`), ShouldBeNil)
			rec := do(h, http.MethodPost, "/v2/auth/r/wallets", "a=b", map[string]string{"Content-Type": "application/x-www-form-urlencoded"})

			Convey("Then it is ignored", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `[]`)
			})
		})

		Convey("When the body has no Content-Type", func() {
			So(store.Set(ctx, "wallets", `[]`), ShouldBeNil)
			rec := do(h, http.MethodPost, "/v2/auth/r/wallets", "a=b", nil)

			Convey("Then it is ignored rather than rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `[]`)
			})
		})

		Convey("When a JSON body carries arrays and exponent numbers", func() {
			So(store.Set(ctx, "alert_del.a,b.1000", `"joined"`), ShouldBeNil)
			rec := do(h, http.MethodPost, "/v2/auth/w/alert/del", `{"symbol":["a","b"],"price":1e3}`,
				map[string]string{"Content-Type": "application/json; charset=utf-8"})

			Convey("Then they bind in their joined and canonical forms", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `"joined"`)
			})
		})

		Convey("When a JSON body has trailing data", func() {
			rec := do(h, http.MethodPost, "/v2/auth/r/wallets", `{"a":1} junk`, map[string]string{"Content-Type": "application/json"})

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a path parameter holds an escaped percent sign", func() {
			So(store.Set(ctx, "ticker.a%41", `"literal"`), ShouldBeNil)
			So(store.Set(ctx, "ticker.aA", `"double decoded"`), ShouldBeNil)
			rec := do(h, http.MethodGet, "/v2/ticker/a%2541", "", nil)

			Convey("Then it is decoded exactly once", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `"literal"`)
			})
		})

		Convey("When a path parameter holds an escaped slash", func() {
			So(store.Set(ctx, "ticker.a/b", `"slash"`), ShouldBeNil)
			rec := do(h, http.MethodGet, "/v2/ticker/a%2Fb", "", nil)

			Convey("Then it is decoded", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, `"slash"`)
			})
		})

		Convey("When a route is called with the other verb", func() {
			So(store.Set(ctx, "wallets", `[]`), ShouldBeNil)
			So(store.Set(ctx, "tickers", `[]`), ShouldBeNil)

			Convey("Then the router answers 405", func() {
				So(do(h, http.MethodGet, "/v2/auth/r/wallets", "", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(do(h, http.MethodPost, "/v2/tickers", "", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})

		Convey("When an unregistered path is called", func() {
			rec := do(h, http.MethodGet, "/v2/unknown", "", nil)

			Convey("Then the router answers 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})

	Convey("Given an API server over an unreachable store", t, func() {
		h := api.NewServer(failingStore{}).Handler()
		rec := do(h, http.MethodGet, "/v2/tickers", "", nil)

		Convey("Then requests fail with 500", func() {
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(rec)["error"], ShouldEqual, "response store unavailable")
		})
	})
}

func TestServerEndpoints(t *testing.T) {
	Convey("Given the default route table", t, func() {
		s := api.NewServer(repository.NewMemoryStore())

		Convey("Then every endpoint is served", func() {
			So(len(s.Endpoints()), ShouldEqual, 24)
		})
	})
}
