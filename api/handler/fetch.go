package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/fetchkit/fetchers"
	"github.com/use-agent/fetchkit/models"
	"github.com/use-agent/fetchkit/parser"
)

// Dispatchers bundles the fetcher families the handler routes between.
type Dispatchers struct {
	HTTP     *fetchers.Fetcher
	Stealthy *fetchers.StealthyFetcher
	Browser  *fetchers.BrowserFetcher
}

// Fetch returns the handler for POST /api/v1/fetch.
//
// Flow: parse and default the request, route to the selected dispatch
// family, render the unified response in the requested output format.
func Fetch(d Dispatchers) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FetchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.FetchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		resp, err := dispatch(c, d, &req)
		if err != nil {
			respondError(c, err)
			return
		}

		content, err := renderContent(resp, req.OutputFormat)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.FetchResponse{
			Success: true,
			URL:     resp.URL,
			Status:  resp.Status,
			Reason:  resp.Reason,
			Headers: resp.Headers,
			Cookies: resp.Cookies,
			Content: content,
		})
	}
}

func dispatch(c *gin.Context, d Dispatchers, req *models.FetchRequest) (*parser.Response, error) {
	ctx := c.Request.Context()

	switch req.Engine {
	case "stealth":
		opts := &fetchers.StealthOptions{
			TimeoutMs:    req.Timeout * 1000,
			NetworkIdle:  req.NetworkIdle,
			WaitSelector: req.WaitSelector,
			ExtraHeaders: req.Headers,
		}
		if req.Proxy != "" {
			opts.Proxy = req.Proxy
		}
		return d.Stealthy.Fetch(ctx, req.URL, opts)

	case "browser":
		opts := &fetchers.BrowserOptions{
			TimeoutMs:    req.Timeout * 1000,
			NetworkIdle:  req.NetworkIdle,
			WaitSelector: req.WaitSelector,
			ExtraHeaders: req.Headers,
			Stealth:      req.Stealth,
			CDPURL:       req.CDPURL,
		}
		if req.Proxy != "" {
			opts.Proxy = req.Proxy
		}
		return d.Browser.Fetch(ctx, req.URL, opts)

	default:
		opts := &fetchers.RequestOptions{
			Timeout: req.Timeout,
			Headers: req.Headers,
		}
		if req.Proxy != "" {
			opts.Proxy = req.Proxy
		}
		switch req.Method {
		case "POST":
			return d.HTTP.Post(ctx, req.URL, opts)
		case "PUT":
			return d.HTTP.Put(ctx, req.URL, opts)
		case "DELETE":
			return d.HTTP.Delete(ctx, req.URL, opts)
		default:
			return d.HTTP.Get(ctx, req.URL, opts)
		}
	}
}

func renderContent(resp *parser.Response, format string) (string, error) {
	switch format {
	case "markdown":
		return resp.Markdown()
	case "text":
		return resp.FullText(), nil
	default:
		return resp.Text, nil
	}
}

// respondError maps internal errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	var cfgErr *models.ConfigError
	var engErr *models.EngineError

	switch {
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, models.FetchResponse{
			Success: false,
			Error:   cfgErr.ToDetail(),
		})
	case errors.As(err, &engErr):
		c.JSON(http.StatusBadRequest, models.FetchResponse{
			Success: false,
			Error:   engErr.ToDetail(),
		})
	default:
		c.JSON(http.StatusBadGateway, models.FetchResponse{
			Success: false,
			Error: &models.ErrorDetail{
				Code:    models.ErrCodeNavigation,
				Message: err.Error(),
			},
		})
	}
}
