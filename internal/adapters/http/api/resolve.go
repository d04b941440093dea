package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/mocksrv/internal/domain/endpoints"
	"github.com/okian/mocksrv/internal/domain/keys"
	"github.com/okian/mocksrv/internal/domain/resolver"
	"github.com/okian/mocksrv/pkg/logger"
	"github.com/okian/mocksrv/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// resolveHandler serves one endpoint: merge path, query and body parameters
// (later wins), expand the key template and answer with the first configured
// response.
func (s *Server) resolveHandler(ep endpoints.Endpoint) http.HandlerFunc {
	name := ep.Name()
	log := s.log.With(logger.String("endpoint", name))

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, err := requestParams(r)
		if err != nil {
			log.Debug(ctx, "rejecting request body", logger.Error(err))
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: ErrBadRequest.Error()})
			return
		}

		candidates := keys.Candidates(params, ep.KeyTemplate)
		res, err := s.resolver.Resolve(ctx, candidates)

		var (
			noResponse  *resolver.NoResponseError
			badResponse *resolver.BadResponseError
		)
		switch {
		case err == nil:
			metrics.RecordResolution(name, metrics.OutcomeHit, res.Depth)
			log.Debug(ctx, "resolved", logger.String("key", res.Key), logger.Int("depth", res.Depth))
			writeRaw(w, http.StatusOK, res.Body)
		case errors.As(err, &noResponse):
			metrics.RecordResolution(name, metrics.OutcomeMiss, 0)
			log.Debug(ctx, "no response configured", logger.Strings("keys", noResponse.Keys))
			writeJSON(w, http.StatusNotFound, errorResponse{Error: resolver.ErrNoResponse.Error(), Keys: noResponse.Keys})
		case errors.As(err, &badResponse):
			metrics.RecordResolution(name, metrics.OutcomeBadResponse, 0)
			log.Warn(ctx, "stored response is not json", logger.String("key", badResponse.Key), logger.Error(badResponse.Err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: resolver.ErrBadResponse.Error()})
		default:
			metrics.RecordResolution(name, metrics.OutcomeStoreError, 0)
			metrics.RecordError("api", "store_read")
			log.Error(ctx, "response store read failed", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: resolver.ErrStoreRead.Error()})
		}
	}
}

// requestParams merges path parameters, query parameters and JSON body fields
// in that order.
func requestParams(r *http.Request) (keys.Params, error) {
	body, err := bodyParams(r)
	if err != nil {
		return nil, err
	}
	return keys.Merge(pathParams(r), keys.FromQuery(r.URL.Query()), body), nil
}

func pathParams(r *http.Request) keys.Params {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	out := make(keys.Params, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		if k == "*" {
			continue
		}
		out[k] = routeValue(r, rctx.URLParams.Values[i])
	}
	return out
}

// routeValue decodes a chi URL parameter. chi matches on RawPath when the
// request has one and on the already decoded Path otherwise, so only the
// former needs unescaping.
func routeValue(r *http.Request, v string) string {
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// bodyParams reads a JSON body. Bodies without a JSON Content-Type are
// ignored.
func bodyParams(r *http.Request) (keys.Params, error) {
	if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadBody, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrBadRequest, maxBodyBytes)
	}
	return keys.FromJSONBody(body)
}

// isJSON reports whether ct names application/json or a +json media type.
func isJSON(ct string) bool {
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
