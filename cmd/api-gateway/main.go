package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockgate/internal/auth"
	"stockgate/internal/config"
	"stockgate/internal/discovery"
)

// Gateway is the trust boundary: every proxied route is behind the token
// gate, and downstream services receive the authenticated subject in a
// header. Routes are resolved via Consul with configured fallbacks.
type Gateway struct {
	consul    *discovery.ConsulClient
	fallbacks map[string]string
	logger    *zap.SugaredLogger

	mutex    sync.RWMutex
	proxies  map[string]*httputil.ReverseProxy
	services map[string]string
}

func NewGateway(consul *discovery.ConsulClient, fallbacks map[string]string, logger *zap.SugaredLogger) *Gateway {
	g := &Gateway{
		consul:    consul,
		fallbacks: fallbacks,
		logger:    logger,
		proxies:   make(map[string]*httputil.ReverseProxy),
		services:  make(map[string]string),
	}

	g.discoverServices()

	return g
}

func (g *Gateway) discoverServices() {
	for svc, fallback := range g.fallbacks {
		serviceURL := fallback
		if g.consul != nil {
			if discovered, err := g.consul.GetServiceURL(svc); err == nil {
				serviceURL = discovered
			} else {
				g.logger.Warnw("service not found in Consul, using fallback", "service", svc, "error", err)
			}
		}
		g.updateProxy(svc, serviceURL)
	}
}

func (g *Gateway) updateProxy(serviceName, serviceURL string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.services[serviceName] == serviceURL {
		return
	}

	target, err := url.Parse(serviceURL)
	if err != nil {
		g.logger.Errorw("invalid service URL", "service", serviceName, "url", serviceURL, "error", err)
		return
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.logger.Errorw("proxy error", "service", serviceName, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error": "service unavailable"}`)
	}

	g.proxies[serviceName] = proxy
	g.services[serviceName] = serviceURL
	g.logger.Infow("route updated", "service", serviceName, "url", serviceURL)
}

func (g *Gateway) watchServices(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.discoverServices()
		}
	}
}

func (g *Gateway) getProxy(serviceName string) *httputil.ReverseProxy {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.proxies[serviceName]
}

func (g *Gateway) proxyTo(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxy := g.getProxy(serviceName)
		if proxy == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": serviceName + " unavailable"})
			return
		}
		g.logger.Infow("routing request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"service", serviceName,
			"subject", auth.SubjectFromContext(c),
		)
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// HealthCheck aggregates downstream health
func (g *Gateway) HealthCheck(c *gin.Context) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	statuses := make(map[string]string)
	allHealthy := true

	client := &http.Client{Timeout: 2 * time.Second}

	for name, url := range g.services {
		resp, err := client.Get(url + "/health")
		if err != nil || resp.StatusCode != http.StatusOK {
			statuses[name] = "unhealthy"
			allHealthy = false
		} else {
			statuses[name] = "healthy"
		}
		if resp != nil {
			resp.Body.Close()
		}
	}

	status := "healthy"
	if !allHealthy {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"service":  "api-gateway",
		"services": statuses,
	})
}

func loginHandler(verifier auth.Verifier, policy auth.TokenPolicy, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !verifier.Verify(req.Username, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		token, err := auth.Issue(policy, req.Username)
		if err != nil {
			logger.Errorw("failed to issue token", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}

		logger.Infow("token issued", "subject", req.Username)
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg := config.Load()

	policy := auth.TokenPolicy{
		Key:      []byte(cfg.JWTKey),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      auth.TokenTTL,
	}
	verifier := auth.StaticVerifier{Username: cfg.AdminUser, Password: cfg.AdminPassword}

	consul, err := discovery.NewConsulClient(cfg.ConsulHost, cfg.ConsulPort)
	if err != nil {
		sugar.Warnw("failed to connect to Consul, using configured service URLs", "error", err)
		consul = nil
	}

	gateway := NewGateway(consul, map[string]string{
		"inventory-service": cfg.InventoryBaseURL,
		"sales-service":     cfg.SalesBaseURL,
	}, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go gateway.watchServices(ctx)

	router := gin.Default()

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "API Gateway ok")
	})
	router.GET("/health", gateway.HealthCheck)
	router.POST("/login", loginHandler(verifier, policy, sugar))

	// Everything proxied requires a valid token.
	protected := router.Group("/")
	protected.Use(rateLimitMiddleware(newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	protected.Use(auth.RequireToken(policy))

	protected.Any("/products", gateway.proxyTo("inventory-service"))
	protected.Any("/products/*path", gateway.proxyTo("inventory-service"))
	protected.Any("/validate-stock", gateway.proxyTo("inventory-service"))
	protected.Any("/orders", gateway.proxyTo("sales-service"))
	protected.Any("/orders/*path", gateway.proxyTo("sales-service"))

	srv := &http.Server{
		Addr:              cfg.GatewayAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	sugar.Infow("API gateway starting", "addr", cfg.GatewayAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalw("server error", "error", err)
	}
}
