package probeadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/hydraping/hydraping/internal/endpoint"
)

const maxRedirects = 5

// HTTPAdapter issues a GET and measures request-to-response-headers
// latency. The client is shared across probes so its connection pool
// stays process-scoped instead of reconnecting on every tick.
type HTTPAdapter struct {
	Client *http.Client
}

func NewHTTPAdapter() *HTTPAdapter {
	return &HTTPAdapter{
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

func (a *HTTPAdapter) Probe(ctx context.Context, target string) CheckResult {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failed(endpoint.CheckHttp, started, StatusProtocolError, err.Error())
	}

	resp, err := a.Client.Do(req)
	latency := time.Since(started).Seconds() * 1000
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return TimedOut(endpoint.CheckHttp, started)
		}
		if errors.Is(err, context.Canceled) {
			return Canceled(endpoint.CheckHttp, started)
		}
		return failed(endpoint.CheckHttp, started, StatusUnreachable, err.Error())
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		result := failed(endpoint.CheckHttp, started, StatusProtocolError, resp.Status)
		result.ProtocolCode = resp.StatusCode
		return result
	}

	return ok(endpoint.CheckHttp, started, latency, resp.Status)
}
