package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/revitfy/revitfy/internal/config"
	"github.com/revitfy/revitfy/internal/family"
	familydomain "github.com/revitfy/revitfy/internal/family/domain"
	"github.com/revitfy/revitfy/internal/identity"
	identitydomain "github.com/revitfy/revitfy/internal/identity/domain"
	"github.com/revitfy/revitfy/internal/observability"
	obsmiddleware "github.com/revitfy/revitfy/internal/observability/logger"
	obsmetrics "github.com/revitfy/revitfy/internal/observability/metrics"
	obstracing "github.com/revitfy/revitfy/internal/observability/tracing"
	"github.com/revitfy/revitfy/internal/playlist"
	playlistdomain "github.com/revitfy/revitfy/internal/playlist/domain"
	"github.com/revitfy/revitfy/internal/project"
	projectdomain "github.com/revitfy/revitfy/internal/project/domain"
	"github.com/revitfy/revitfy/internal/ratelimit"
	"github.com/revitfy/revitfy/internal/reaction"
	reactiondomain "github.com/revitfy/revitfy/internal/reaction/domain"
	"github.com/revitfy/revitfy/internal/storage"
	"github.com/revitfy/revitfy/internal/usage"
	usagedomain "github.com/revitfy/revitfy/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	project.Module,
	usage.Module,
	reaction.Module,
	family.Module,
	playlist.Module,
	identity.Module,
	storage.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB

	familySvc     familydomain.Service
	playlistSvc   playlistdomain.Service
	reactionSvc   reactiondomain.Service
	usageSvc      usagedomain.Service
	projectSvc    projectdomain.Service
	identitySvc   identitydomain.Service
	storageSvc    storage.Service
	importLimiter *ratelimit.ImportLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	FamilySvc   familydomain.Service
	PlaylistSvc playlistdomain.Service
	ReactionSvc reactiondomain.Service
	UsageSvc    usagedomain.Service
	ProjectSvc  projectdomain.Service
	IdentitySvc identitydomain.Service

	StorageSvc    storage.Service          `optional:"true"`
	ImportLimiter *ratelimit.ImportLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		familySvc:     p.FamilySvc,
		playlistSvc:   p.PlaylistSvc,
		reactionSvc:   p.ReactionSvc,
		usageSvc:      p.UsageSvc,
		projectSvc:    p.ProjectSvc,
		identitySvc:   p.IdentitySvc,
		storageSvc:    p.StorageSvc,
		importLimiter: p.ImportLimiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Families --------
	api.GET("/family", s.ListFamilies)
	api.POST("/family", s.CreateFamily)
	api.GET("/family/:id", s.GetFamilyDetail)
	api.PUT("/family/:id", s.UpdateFamily)
	api.DELETE("/family/:id", s.DeleteFamily)
	api.PUT("/family/:id/preview-image", s.UpdateFamilyPreviewImage)
	api.POST("/family/:id/react", s.AuthRequired(), s.ReactToFamily)

	// -------- Playlists --------
	api.GET("/playlist", s.ListPlaylists)
	api.POST("/playlist", s.AuthRequired(), s.CreatePlaylist)
	api.GET("/playlist/:id", s.GetPlaylist)
	api.GET("/playlist/:id/families", s.ListPlaylistFamilies)
	api.POST("/playlist/:id/families", s.AddPlaylistFamily)
	api.DELETE("/playlist/:id/families/:familyId", s.RemovePlaylistFamily)
	api.POST("/playlist/:id/react", s.AuthRequired(), s.ReactToPlaylist)
	api.POST("/playlist/:id/like", s.AuthRequired(), s.LikePlaylist)
	api.PUT("/playlist/:id/preview-image", s.UpdatePlaylistPreviewImage)

	// -------- Projects --------
	api.GET("/project", s.ListProjects)
	api.GET("/project/:id", s.GetProject)

	// -------- Derived views --------
	api.GET("/made-for-you", s.MadeForYou)
	api.GET("/recently-used", s.RecentlyUsed)

	// -------- Usage ledger --------
	api.POST("/usage/record", s.RecordUsage)
	api.POST("/usage/import", s.UsageImportRateLimit(), s.ImportUsageSnapshot)

	// -------- Object storage --------
	api.POST("/create-upload-url", s.CreateUploadURL)
	api.GET("/storage/*key", s.ReadStorageObject)
}
