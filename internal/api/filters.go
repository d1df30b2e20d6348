package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"
)

// requestLogger logs method, path, status and latency for every request
func requestLogger(logger zerolog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		start := time.Now()
		chain.ProcessFilter(req, resp)
		logger.Debug().
			Str("method", req.Request.Method).
			Str("path", req.Request.URL.Path).
			Int("status", resp.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// recoverPanic turns a handler panic into a 500 response
func recoverPanic(logger zerolog.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("path", req.Request.URL.Path).
					Interface("panic", r).
					Msg("Recovered from panic")
				writeError(resp, http.StatusInternalServerError, fmt.Errorf("internal error"))
			}
		}()
		chain.ProcessFilter(req, resp)
	}
}
