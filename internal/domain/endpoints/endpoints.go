// Package endpoints declares the REST v2 routes served by the mock and the
// key template each one resolves responses with.
package endpoints

import (
	"net/http"
	"strings"
)

// AuthMarker is the path segment that marks authenticated routes.
const AuthMarker = "auth"

// Endpoint binds a route to its key template.
type Endpoint struct {
	// Path is a chi route pattern, e.g. /v2/ticker/{symbol}.
	Path string
	// KeyTemplate is the dot separated response key template.
	KeyTemplate string
	// Method is derived from Path by MethodFor.
	Method string
}

// Name is a stable, label friendly identifier: the first segment of the key
// template, which is unique across the table.
func (e Endpoint) Name() string {
	name, _, _ := strings.Cut(e.KeyTemplate, ".")
	return name
}

// Table maps every supported route to its key template.
var Table = []struct{ Path, KeyTemplate string }{ //nolint:gochecknoglobals // static route table
	{"/v2/ticker/{symbol}", "ticker.{symbol}"},
	{"/v2/tickers", "tickers"},
	{"/v2/stats1/{key}/{context}", "stats.{key}.{context}"},
	{"/v2/candles/{key}/{section}", "candles.{key}.{section}"},

	{"/v2/auth/r/alerts", "alerts.{type}"},
	{"/v2/auth/w/alert/set", "alert_set.{type}.{symbol}.{price}"},
	{"/v2/auth/w/alert/del", "alert_del.{symbol}.{price}"},
	{"/v2/auth/r/trades/{symbol}/hist", "trades.{symbol}.{start}.{end}.{limit}"},
	{"/v2/auth/r/wallets", "wallets"},
	{"/v2/auth/r/orders", "active_orders"},
	{"/v2/auth/r/orders/{symbol}/hist", "orders.{symbol}.{start}.{end}.{limit}"},
	{"/v2/auth/r/order/{symID}/trades", "order_trades.{symID}.{start}.{end}.{limit}"},
	{"/v2/auth/r/positions", "positions"},
	{"/v2/auth/r/funding/offers/{symbol}", "f_offers.{symbol}"},
	{"/v2/auth/r/funding/offers/{symbol}/hist", "f_offer_hist.{symbol}.{start}.{end}.{limit}"},
	{"/v2/auth/r/funding/loans/{symbol}", "f_loans.{symbol}"},
	{"/v2/auth/r/funding/loans/{symbol}/hist", "f_loan_hist.{symbol}.{start}.{end}.{limit}"},
	{"/v2/auth/r/funding/credits/{symbol}", "f_credits.{symbol}"},
	{"/v2/auth/r/funding/credits/{symbol}/hist", "f_credit_hist.{symbol}.{start}.{end}.{limit}"},
	{"/v2/auth/r/funding/trades/{symbol}/hist", "f_trade_hist.{symbol}.{start}.{end}.{limit}"},
	{"/v2/auth/r/info/margin/{key}", "margin_info.{key}"},
	{"/v2/auth/r/info/funding/{key}", "f_info.{key}"},
	{"/v2/auth/r/stats/perf:1D/hist", "performance"},
	{"/v2/auth/r/calc/order/avail", "calc.{symbol}.{dir}.{rate}.{type}"},
}

// MethodFor derives the HTTP method of a route: POST when the second path
// segment is AuthMarker, GET otherwise.
func MethodFor(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) > 2 && parts[2] == AuthMarker {
		return http.MethodPost
	}
	return http.MethodGet
}

// All returns the table with methods filled in.
func All() []Endpoint {
	out := make([]Endpoint, len(Table))
	for i, row := range Table {
		out[i] = Endpoint{
			Path:        row.Path,
			KeyTemplate: row.KeyTemplate,
			Method:      MethodFor(row.Path),
		}
	}
	return out
}
