package api

import (
	"sfidfw/fw/app"
	"sfidfw/fw/common/config"

	"golang.org/x/time/rate"
)

type Server struct {
	App *app.App

	// POST /api/firewall/evaluate 的令牌桶
	evalLimiter *rate.Limiter
}

func New(a *app.App) *Server {
	return &Server{App: a, evalLimiter: newLimiter(a.Cfg.Firewall.Evaluate)}
}

// rps<=0 不限速
func newLimiter(c config.RateCfg) *rate.Limiter {
	if c.RPS <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := c.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RPS), burst)
}
