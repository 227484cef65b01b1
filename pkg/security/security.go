package security

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CORS 仅放行白名单 Origin，"*" 表示全部放行（不带 Credentials）
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		originSet[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case origin != "" && originSet[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		}

		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Secure 常用安全响应头
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// KeyFunc 决定限流维度
type KeyFunc func(c *gin.Context) string

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// KeyByUser 已认证请求按用户限流，否则退回 IP
func KeyByUser(userKey string) KeyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get(userKey); ok {
			if u, ok := v.(interface{ ActorID() uint }); ok {
				return "user:" + strconv.FormatUint(uint64(u.ActorID()), 10)
			}
		}
		return KeyByIP(c)
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter 令牌桶限流器，每个 key 一个桶
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
	now      func() time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	l := &Limiter{
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
	l.SetLimit(maxRequests, window)
	return l
}

// SetLimit 配置热更新，已有的桶按新速率重建
func (l *Limiter) SetLimit(maxRequests int, window time.Duration) {
	if maxRequests < 1 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Minute
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = rate.Every(window / time.Duration(maxRequests))
	l.burst = maxRequests
	l.window = window
	l.visitors = make(map[string]*visitor)
}

// Allow 消耗 key 对应桶中的一个令牌
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

// Sweep 清理长时间未活跃的桶，返回清理数量
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry := l.window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	removed := 0
	now := l.now()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > expiry {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Run 周期清理，ctx 取消后退出
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) Middleware(key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
			})
			return
		}

		c.Next()
	}
}
