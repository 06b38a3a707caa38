package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/video-summary/backend/internal/agent"
	"github.com/video-summary/backend/internal/analysis"
	"github.com/video-summary/backend/internal/api"
	"github.com/video-summary/backend/internal/config"
	"github.com/video-summary/backend/internal/gemini"
	"github.com/video-summary/backend/internal/logging"
	"github.com/video-summary/backend/internal/search"
	"github.com/video-summary/backend/internal/staging"
	"github.com/video-summary/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Printf("Warning: failed to load .env file: %v\n", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		// Default to a file next to the executable
		exePath, err := os.Executable()
		if err != nil {
			fmt.Printf("Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		configPath = filepath.Join(filepath.Dir(exePath), "video-summary.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Without a key nothing can be analysed, so refuse to start
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Println("❌ Google API Key not found! Please check your `.env` file.")
		} else {
			fmt.Printf("Invalid configuration: %v\n", err)
		}
		os.Exit(1)
	}

	logging.SetLevel(cfg.Advanced.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Configure the remote model service
	client, err := gemini.NewClient(ctx, cfg.Gemini.APIKey)
	if err != nil {
		fmt.Printf("Failed to configure Gemini: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	// The agent is built on first use and shared by every request
	searcher := search.NewDuckDuckGo(search.Options{
		Endpoint:   cfg.Search.Endpoint,
		MaxResults: cfg.Search.MaxResults,
		Timeout:    cfg.GetSearchTimeout(),
	})
	agents := agent.NewCache(func() (*agent.Agent, error) {
		var tools []agent.Tool
		if cfg.Agent.EnableWebSearch {
			tools = append(tools, agent.NewSearchTool(searcher, searcher.MaxResults()))
		}
		return agent.New(gemini.NewProvider(client), agent.Options{
			Name:          cfg.Agent.Name,
			Model:         cfg.Gemini.Model,
			Markdown:      cfg.Agent.Markdown,
			MaxToolRounds: cfg.Agent.MaxToolRounds,
		}, tools...)
	})

	// Initialize staging
	videos, err := staging.NewStore(cfg.Staging.TempDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize staging: %v\n", err)
		os.Exit(1)
	}

	// Start background cleanup of uploads that were never analysed
	if interval := cfg.GetCleanupInterval(); interval > 0 {
		go runCleanup(ctx, videos, interval, cfg.GetStagingMaxAge())
	}

	service := analysis.NewService(client, videos, agents, analysis.Options{
		PollInterval: cfg.GetPollInterval(),
		PollTimeout:  cfg.GetPollTimeout(),
		DeleteRemote: cfg.Agent.DeleteRemoteCopy,
	})

	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, cfg.Advanced.ShowErrorDetails)

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || !strings.HasPrefix(path, "/api/")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			// video bytes do not compress
			return strings.HasSuffix(c.Request().URL.Path, "/content")
		},
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	// API Routes
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Videos:   videos,
		Analyzer: service,
		Version:  Version,
		Model:    cfg.Gemini.Model,
	}))

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			fmt.Printf("Warning: failed to register static routes: %v\n", err)
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	webSearch := "disabled"
	if cfg.Agent.EnableWebSearch {
		webSearch = "DuckDuckGo"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Video Summary Server                            ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Model:      %-45s║\n", cfg.Gemini.Model)
	fmt.Printf("║  Web Search: %-45s║\n", webSearch)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Temp Dir:  %-46s║\n", cfg.Staging.TempDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}
}

func runCleanup(ctx context.Context, videos *staging.Store, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			videos.CleanupStale(maxAge)
		}
	}
}
