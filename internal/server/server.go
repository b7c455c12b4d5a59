package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/marketplace-backend/internal/config"
	"github.com/shinyyama/marketplace-backend/internal/handler"
	appmw "github.com/shinyyama/marketplace-backend/internal/middleware"
	"github.com/shinyyama/marketplace-backend/internal/presence"
	"github.com/shinyyama/marketplace-backend/internal/ratelimit"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"github.com/shinyyama/marketplace-backend/internal/service"
	"github.com/shinyyama/marketplace-backend/internal/ws"
	"gorm.io/gorm"
)

type Server struct {
	e           *echo.Echo
	listingRepo repository.ListingRepository
	convRepo    repository.ConversationRepository
	reportRepo  repository.ReportRepository
	sha         string
	build       string
}

func New(db *gorm.DB, rdb *redis.Client, cfg *config.Config, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			low := strings.ToLower(origin)
			if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
				strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
				return true, nil
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false, nil
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return false, nil
			}
			host := u.Hostname()
			if strings.HasSuffix(host, "vercel.app") {
				return true, nil
			}
			return false, nil
		},
	}))

	listingRepo := repository.NewListingRepository(db)
	convRepo := repository.NewConversationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	sendLimiter := ratelimit.NewStore(cfg.SendRatePerSec, cfg.SendBurst)
	sendLimiter.StartJanitor(context.Background())
	reportWindow := ratelimit.NewWindow(time.Duration(cfg.ReportWindowSec)*time.Second, cfg.ReportPerWindow)

	convSvc := service.NewConversationService(convRepo, listingRepo, sendLimiter)
	reportSvc := service.NewReportService(reportRepo, convSvc, reportWindow)

	tracker := presence.NewTracker()
	hub := ws.NewHub(rdb, tracker)
	convSvc.SetNotifier(ws.NewDispatcher(hub))

	convHandler := handler.NewConversationHandler(convSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	authMw, err := appmw.NewAuthMiddleware(context.Background())
	if err != nil {
		e.Logger.Fatalf("failed to init firebase auth: %v", err)
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api")
	if authMw != nil {
		api.POST("/listings/:id/conversations", convHandler.CreateFromListing, authMw.RequireAuth)
		api.GET("/conversations", convHandler.Inbox, authMw.RequireAuth)
		api.GET("/conversations/:id", convHandler.Get, authMw.RequireAuth)
		api.GET("/conversations/:id/messages", convHandler.ListMessages, authMw.RequireAuth)
		api.POST("/conversations/:id/messages", convHandler.SendMessage, authMw.RequireAuth)
		api.POST("/conversations/:id/read", convHandler.MarkRead, authMw.RequireAuth)
		api.POST("/conversations/:id/block", convHandler.SetBlocked, authMw.RequireAuth)
		api.DELETE("/conversations/:id/messages/:msgId", convHandler.DeleteMessage, authMw.RequireAuth)
		api.POST("/conversations/:id/report", reportHandler.Create, authMw.RequireAuth)
		e.GET("/ws", ws.Serve(hub, convSvc, authMw))
	} else {
		api.POST("/listings/:id/conversations", convHandler.CreateFromListing)
		api.GET("/conversations", convHandler.Inbox)
		api.GET("/conversations/:id", convHandler.Get)
		api.GET("/conversations/:id/messages", convHandler.ListMessages)
		api.POST("/conversations/:id/messages", convHandler.SendMessage)
		api.POST("/conversations/:id/read", convHandler.MarkRead)
		api.POST("/conversations/:id/block", convHandler.SetBlocked)
		api.DELETE("/conversations/:id/messages/:msgId", convHandler.DeleteMessage)
		api.POST("/conversations/:id/report", reportHandler.Create)
	}

	return &Server{e: e, listingRepo: listingRepo, convRepo: convRepo, reportRepo: reportRepo, sha: sha, build: buildTime}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) SetDB(db *gorm.DB) {
	if s.listingRepo != nil {
		s.listingRepo.SetDB(db)
	}
	if s.convRepo != nil {
		s.convRepo.SetDB(db)
	}
	if s.reportRepo != nil {
		s.reportRepo.SetDB(db)
	}
}
