package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"StemShare/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// cors 允许跨域访问，分轨文件需要暴露 Range 相关响应头
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder 记录状态码，同时保留 Flush 和 Hijack 能力
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

// requestLogger 为每个请求分配 request id 并记录访问日志
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		log := logger.Info
		if status >= http.StatusInternalServerError {
			log = logger.Error
		}
		log("HTTP 请求",
			logger.String("requestId", id),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Int64("bytes", rec.bytes),
			logger.String("client", clientIP(r)),
			logger.Duration("duration", time.Since(start)))
	})
}

// clientIP 优先使用反向代理传递的地址
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter 按客户端地址限制上传频率
type clientLimiter struct {
	perMin  int
	mu      sync.Mutex
	clients map[string]*limiterEntry
	done    chan struct{}
	once    sync.Once
}

// newClientLimiter perMin <= 0 表示不限流
func newClientLimiter(perMin int) *clientLimiter {
	l := &clientLimiter{
		perMin:  perMin,
		clients: make(map[string]*limiterEntry),
		done:    make(chan struct{}),
	}
	if perMin > 0 {
		go l.sweep(10 * time.Minute)
	}
	return l
}

func (l *clientLimiter) allow(client string) bool {
	if l.perMin <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clients[client]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.clients[client] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

// sweep 定期清理长时间没有请求的客户端
func (l *clientLimiter) sweep(idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for k, e := range l.clients {
				if time.Since(e.lastSeen) > idle {
					delete(l.clients, k)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

func (l *clientLimiter) stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			logger.Warn("上传请求过于频繁", logger.String("client", clientIP(r)))
			writeJSONError(w, http.StatusTooManyRequests, "Too many uploads. Please wait a minute and try again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
