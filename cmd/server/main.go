package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mediakit/sfu-gateway/internal/api"
	"github.com/mediakit/sfu-gateway/internal/balancer"
	"github.com/mediakit/sfu-gateway/internal/config"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal("loading gateway config: ", err)
	}

	// Roster: the JSON env var wins over the secrets file.
	var nodes *config.NodeData
	if cfg.Nodes != "" {
		log.Println("loading SFU nodes from environment variable")
		nodes, err = config.NodesFromJSON(cfg.Nodes)
	} else {
		log.Println("loading SFU nodes from file:", cfg.SecretsPath)
		nodes, err = config.LoadNodes(cfg.SecretsPath)
	}
	if err != nil {
		log.Fatal("loading SFU nodes: ", err)
	}
	for _, sfu := range nodes.SFU {
		log.Printf("registered SFU address=%s region=%q", sfu.Address, sfu.Region)
	}

	state := &api.State{
		Balancer:   balancer.New(nodes.SFU),
		Client:     &http.Client{},
		GatewayKey: cfg.Key,
		TrustProxy: cfg.TrustProxy,
	}

	router := gin.Default()

	// OpenTelemetry tracing (optional)
	if shutdown, ok := api.SetupOTelFromEnv(); ok {
		defer shutdown(context.Background())
		router.Use(otelgin.Middleware("sfu-gateway"))
	}
	router.Use(api.MetricsMiddleware())
	router.Use(api.RequestIDMiddleware())

	corsConfig := cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	// Override allowed origins via env (comma-separated)
	if origins := os.Getenv("SFU_GATEWAY_CORS_ORIGINS"); origins != "" {
		corsConfig.AllowAllOrigins = false
		parts := strings.Split(origins, ",")
		allow := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				allow = append(allow, s)
			}
		}
		if len(allow) > 0 {
			corsConfig.AllowOrigins = allow
		}
	}
	router.Use(cors.New(corsConfig))

	// Optionally configure trusted proxies (comma-separated CIDRs or IPs)
	if tp := os.Getenv("SFU_GATEWAY_TRUSTED_PROXIES"); tp != "" {
		parts := strings.Split(tp, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := router.SetTrustedProxies(parts); err != nil {
			log.Printf("warning: failed to set trusted proxies: %v", err)
		}
	}

	router.GET("/noop", api.Noop)
	router.GET("/healthz", func(c *gin.Context) { c.Status(200) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	channelRoutes := router.Group("/v1")
	if mw, ok := api.RateLimitMiddlewareFromEnv(); ok {
		channelRoutes.Use(mw)
	}
	channelRoutes.GET("/channel", api.Channel(state))

	bindAddr := cfg.Bind + ":" + strconv.Itoa(cfg.Port)
	log.Printf("starting SFU gateway on %s (%d SFU nodes)", bindAddr, state.Balancer.Len())
	if err := router.Run(bindAddr); err != nil {
		log.Fatal("failed to start server: ", err)
	}
}
