package construct

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minus-twelve/construct/directory"
	"github.com/minus-twelve/construct/types"
)

const (
	SessionHeader = "X-Construct-Session"
	identifierKey = "construct.identifier"
)

// Response statuses shared with the admin front end.
const (
	StatusSuccess         = "success"
	StatusUnauthorized    = "unauthorized"
	StatusMissingHashedID = "missing-hashed-id"
	StatusMissingSession  = "missing-session"
	StatusRateLimited     = "rate-limited"
	StatusInternalError   = "internal-error"
)

type RateLimiter struct {
	attempts map[string]int
	times    map[string]time.Time
	mutex    sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string]int),
		times:    make(map[string]time.Time),
	}
}

// Check counts an attempt for key and reports whether it is within limit
// for the current window. A non-positive limit disables limiting.
func (rl *RateLimiter) Check(key string, limit int, period time.Duration) bool {
	if limit <= 0 {
		return true
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	if last, ok := rl.times[key]; ok && now.Sub(last) < period {
		if rl.attempts[key] >= limit {
			return false
		}
		rl.attempts[key]++
	} else {
		rl.attempts[key] = 1
		rl.times[key] = now
	}
	return true
}

func (rl *RateLimiter) cleanup(maxAge time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	now := time.Now()
	for key, last := range rl.times {
		if now.Sub(last) > maxAge {
			delete(rl.attempts, key)
			delete(rl.times, key)
		}
	}
}

// SessionManager serves the admin session endpoints and guards the rest of
// the admin API.
type SessionManager struct {
	store          Store
	directory      directory.Directory
	security       types.SecurityConfig
	log            *slog.Logger
	metrics        *Metrics
	rateLimiter    *RateLimiter
	trustedProxies []net.IPNet
	shutdownChan   chan struct{}
	closeOnce      sync.Once
	wg             sync.WaitGroup
}

type ManagerOption func(*SessionManager)

func WithLogger(log *slog.Logger) ManagerOption {
	return func(sm *SessionManager) {
		if log != nil {
			sm.log = log
		}
	}
}

func WithMetrics(m *Metrics) ManagerOption {
	return func(sm *SessionManager) {
		sm.metrics = m
	}
}

func NewManager(store Store, dir directory.Directory, security types.SecurityConfig, opts ...ManagerOption) *SessionManager {
	manager := &SessionManager{
		store:          store,
		directory:      dir,
		security:       security,
		log:            slog.Default(),
		rateLimiter:    NewRateLimiter(),
		trustedProxies: parseTrustedProxies(security.TrustedProxies),
		shutdownChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(manager)
	}

	manager.wg.Add(1)
	go manager.cleanupRateLimits()

	return manager
}

func parseTrustedProxies(proxies []string) []net.IPNet {
	trustedNetworks := make([]net.IPNet, 0, len(proxies))
	for _, proxy := range proxies {
		_, ipnet, err := net.ParseCIDR(proxy)
		if err != nil {
			ip := net.ParseIP(proxy)
			if ip == nil {
				continue
			}
			mask := net.CIDRMask(32, 32)
			if ip.To4() == nil {
				mask = net.CIDRMask(128, 128)
			}
			ipnet = &net.IPNet{IP: ip, Mask: mask}
		}
		trustedNetworks = append(trustedNetworks, *ipnet)
	}
	return trustedNetworks
}

// Close stops the rate limiter cleanup loop.
func (sm *SessionManager) Close() {
	sm.closeOnce.Do(func() {
		close(sm.shutdownChan)
	})
	sm.wg.Wait()
}

func (sm *SessionManager) cleanupRateLimits() {
	defer sm.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.rateLimiter.cleanup(max(sm.security.RateLimit.Period, 5*time.Minute))
		case <-sm.shutdownChan:
			return
		}
	}
}

// Register mounts the admin session routes on r.
func (sm *SessionManager) Register(r gin.IRouter) {
	admin := r.Group("/admin")
	admin.GET("/authenticate", sm.RateLimitMiddleware(), sm.Authenticate)
	admin.GET("/checksession", sm.CheckSession)
	admin.POST("/logout", sm.Logout)
	admin.GET("/whoami", sm.RequireSession(), sm.WhoAmI)
}

// Authenticate issues a session for a hashed id holding the lab manager
// permission.
func (sm *SessionManager) Authenticate(c *gin.Context) {
	hashedID := c.Query("hashedId")
	if hashedID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusMissingHashedID})
		return
	}

	ok, err := sm.directory.HasPermission(c.Request.Context(), hashedID, directory.LabManager)
	if err != nil {
		sm.log.Error("permission lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": StatusInternalError})
		return
	}
	if !ok {
		sm.log.Info("authentication rejected", "ip", sm.GetClientIP(c.Request))
		c.JSON(http.StatusUnauthorized, gin.H{"status": StatusUnauthorized})
		return
	}

	token := sm.store.CreateSession(hashedID)
	sm.log.Info("session created", "ip", sm.GetClientIP(c.Request))
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccess, "session": token})
}

func (sm *SessionManager) CheckSession(c *gin.Context) {
	token := c.Query("session")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusMissingSession})
		return
	}

	valid := sm.store.SessionValid(token)
	sm.metrics.observeCheck(valid)
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"status": StatusUnauthorized})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccess})
}

func (sm *SessionManager) Logout(c *gin.Context) {
	token := SessionToken(c.Request)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": StatusMissingSession})
		return
	}
	if !sm.store.SessionValid(token) || !sm.store.Revoke(token) {
		c.JSON(http.StatusUnauthorized, gin.H{"status": StatusUnauthorized})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccess})
}

func (sm *SessionManager) WhoAmI(c *gin.Context) {
	identifier, _ := Identifier(c)
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccess, "identifier": identifier})
}

// RequireSession aborts with 401 unless the request carries a valid
// session. The owning identifier is available to later handlers through
// Identifier.
func (sm *SessionManager) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c.Request)
		valid := token != "" && sm.store.RefreshSession(token)
		sm.metrics.observeCheck(valid)
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": StatusUnauthorized})
			return
		}

		identifier, ok := sm.store.GetIdentifier(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": StatusUnauthorized})
			return
		}
		c.Set(identifierKey, identifier)
		c.Next()
	}
}

func (sm *SessionManager) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := sm.GetClientIP(c.Request)
		if !sm.rateLimiter.Check(ip, sm.security.RateLimit.Limit, sm.security.RateLimit.Period) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"status": StatusRateLimited})
			return
		}
		c.Next()
	}
}

// Identifier returns the identifier stored by RequireSession.
func Identifier(c *gin.Context) (string, bool) {
	v, ok := c.Get(identifierKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SessionToken extracts the session token from the "session" query
// parameter, the X-Construct-Session header or a bearer Authorization
// header, in that order.
func SessionToken(r *http.Request) string {
	if token := r.URL.Query().Get("session"); token != "" {
		return token
	}
	if token := r.Header.Get(SessionHeader); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// GetClientIP trusts X-Forwarded-For only when the direct peer is a
// configured proxy.
func (sm *SessionManager) GetClientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return ip
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return ip
	}
	for _, trusted := range sm.trustedProxies {
		if trusted.Contains(clientIP) {
			if ips := splitIPs(forwarded); len(ips) > 0 && ips[0] != "" {
				return ips[0]
			}
		}
	}
	return ip
}

func splitIPs(forwarded string) []string {
	ips := strings.Split(forwarded, ",")
	for i := range ips {
		ips[i] = strings.TrimSpace(ips[i])
	}
	return ips
}
