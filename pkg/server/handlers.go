package server

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/Borislavv/count-min-sketch/pkg/prometheus/metrics"
	"github.com/Borislavv/count-min-sketch/pkg/sketch"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

var errSketchNotFound = errors.New("sketch not found")

// unknownSketch labels errors of calls which never reached an existing sketch.
const unknownSketch = "unknown"

type estimateResponse struct {
	Sketch   string `json:"sketch"`
	Element  string `json:"element"`
	Estimate uint64 `json:"estimate"`
}

type paramsResponse struct {
	Sketch       string  `json:"sketch"`
	Depth        uint32  `json:"depth"`
	Width        uint32  `json:"width"`
	Epsilon      float64 `json:"epsilon"`
	Delta        float64 `json:"delta"`
	DecayEnabled bool    `json:"decayEnabled"`
	DecayWeight  float64 `json:"decayWeight,omitempty"`
	MemBytes     int64   `json:"memBytes"`
}

type errorResponse struct {
	Error errorMessage `json:"error"`
}

type errorMessage struct {
	Message string `json:"message"`
}

func (s *Server) health(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain")
	ctx.SetBodyString("ok")
}

func (s *Server) writeMetrics(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; version=0.0.4")
	metrics.WritePrometheus(ctx)
}

func (s *Server) createSketch(ctx *fasthttp.RequestCtx) {
	name := pathParam(ctx, "name")
	cms, err := s.registry.GetOrCreate(name, s.factory)
	if err != nil {
		s.writeError(ctx, name, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, newParamsResponse(name, cms.Params()))
}

func (s *Server) getSketch(ctx *fasthttp.RequestCtx) {
	name := pathParam(ctx, "name")
	cms, ok := s.registry.Get(name)
	if !ok {
		s.writeError(ctx, name, errSketchNotFound)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, newParamsResponse(name, cms.Params()))
}

func (s *Server) deleteSketch(ctx *fasthttp.RequestCtx) {
	name := pathParam(ctx, "name")
	if !s.registry.Remove(name) {
		s.writeError(ctx, name, errSketchNotFound)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// update adds ?increment=N (default 1) to the element, creating the sketch on first use.
func (s *Server) update(ctx *fasthttp.RequestCtx) {
	name, element := pathParam(ctx, "name"), pathParam(ctx, "element")

	increment := uint64(1)
	if raw := ctx.QueryArgs().Peek("increment"); len(raw) > 0 {
		v, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			s.writeError(ctx, name, errBadIncrement(raw))
			return
		}
		increment = v
	}

	cms, err := s.registry.GetOrCreate(name, s.factory)
	if err != nil {
		s.writeError(ctx, name, err)
		return
	}

	est, err := cms.Update([]byte(element), increment)
	if err != nil {
		s.writeError(ctx, name, err)
		return
	}

	s.updates.Add(1)
	s.meter.IncUpdates(name)
	writeJSON(ctx, fasthttp.StatusOK, estimateResponse{Sketch: name, Element: element, Estimate: est})
}

func (s *Server) estimate(ctx *fasthttp.RequestCtx) {
	name, element := pathParam(ctx, "name"), pathParam(ctx, "element")

	cms, ok := s.registry.Get(name)
	if !ok {
		s.writeError(ctx, name, errSketchNotFound)
		return
	}

	est, err := cms.Estimate([]byte(element))
	if err != nil {
		s.writeError(ctx, name, err)
		return
	}

	s.estimates.Add(1)
	s.meter.IncEstimates(name)
	writeJSON(ctx, fasthttp.StatusOK, estimateResponse{Sketch: name, Element: element, Estimate: est})
}

type badIncrementError struct {
	raw string
}

func errBadIncrement(raw []byte) error {
	return &badIncrementError{raw: string(raw)}
}

func (e *badIncrementError) Error() string {
	return "increment must be a non-negative integer, got " + strconv.Quote(e.raw)
}

// classify maps an error to its HTTP status and a short label for the errors metric.
func classify(err error) (status int, kind string) {
	var badIncrement *badIncrementError
	switch {
	case errors.As(err, &badIncrement):
		return fasthttp.StatusBadRequest, "bad_increment"
	case errors.Is(err, errSketchNotFound):
		return fasthttp.StatusNotFound, "not_found"
	case errors.Is(err, sketch.ErrInvalidParameter):
		return fasthttp.StatusBadRequest, "invalid_parameter"
	case errors.Is(err, sketch.ErrOverflow):
		return fasthttp.StatusConflict, "overflow"
	case errors.Is(err, sketch.ErrUninitialized):
		return fasthttp.StatusGone, "uninitialized"
	case errors.Is(err, sketch.ErrResourceExhausted):
		return fasthttp.StatusInsufficientStorage, "resource_exhausted"
	default:
		return fasthttp.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, name string, err error) {
	status, kind := classify(err)
	if status >= fasthttp.StatusInternalServerError {
		log.Error().Err(err).Str("requestID", requestID(ctx)).Msgf("[server] sketch %q call failed", name)
	}
	s.meter.IncErrors(errorLabel(name, kind), kind)
	writeJSON(ctx, status, errorResponse{Error: errorMessage{Message: err.Error()}})
}

// errorLabel keeps the sketch name only for failures of a sketch which exists. Client supplied
// names of missing or rejected sketches would otherwise grow the series without bound.
func errorLabel(name, kind string) string {
	switch kind {
	case "overflow", "internal":
		return name
	default:
		return unknownSketch
	}
}

func newParamsResponse(name string, p sketch.Params) paramsResponse {
	return paramsResponse{
		Sketch:       name,
		Depth:        p.Depth(),
		Width:        p.Width(),
		Epsilon:      p.Epsilon(),
		Delta:        p.Delta(),
		DecayEnabled: p.DecayEnabled(),
		DecayWeight:  p.DecayWeight(),
		MemBytes:     p.Mem(),
	}
}

func pathParam(ctx *fasthttp.RequestCtx, key string) string {
	v, _ := ctx.UserValue(key).(string)
	return v
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		log.Error().Err(err).Msg("[server] failed to encode response")
	}
}
