package httpapi

import (
	"net"
	"net/http"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"opsboard/internal/logging"
	"opsboard/internal/server/config"
)

// LoginLimiter throttles credential-guessing on the login endpoint, keyed
// by client IP and backed by Redis so the limit holds across replicas.
type LoginLimiter struct {
	limiter *redis_rate.Limiter
	perMin  int
	logger  logging.Logger
}

// NewLoginLimiter connects to Redis and returns a limiter, or nil when no
// Redis address is configured. A nil limiter passes every request through.
func NewLoginLimiter(cfg *config.Config, logger logging.Logger) *LoginLimiter {
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return &LoginLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		perMin:  cfg.LoginRatePerMinute,
		logger:  logger,
	}
}

func (rl *LoginLimiter) middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		res, err := rl.limiter.Allow(ctx, "login:"+ip, redis_rate.PerMinute(rl.perMin))
		if err != nil {
			// limiter trouble must not lock everybody out
			rl.logger.Error(ctx, "rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if res.Allowed == 0 {
			rl.logger.Warn(ctx, "login rate limit exceeded", "ip", ip)
			respondError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts, try again later")
			return
		}

		next.ServeHTTP(w, r)
	})
}
