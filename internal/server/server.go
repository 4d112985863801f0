package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/config"
	"github.com/farellandr/ticketgate/internal/booking"
	"github.com/farellandr/ticketgate/internal/catalog"
	"github.com/farellandr/ticketgate/internal/handlers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/qr"
	"github.com/farellandr/ticketgate/internal/state"
	"github.com/farellandr/ticketgate/internal/storage"
	"github.com/farellandr/ticketgate/internal/tickets"
)

const shutdownTimeout = 10 * time.Second

func Start(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var db *gorm.DB
	if cfg.HasDatabase() {
		var err error
		db, err = config.InitDatabase(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	var rdb *redis.Client
	if cfg.BatchStore == config.StoreRedis {
		var err error
		rdb, err = config.InitRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	store, err := newStore(cfg.BatchStore, db, rdb)
	if err != nil {
		return err
	}

	st, err := NewState(cfg, store, db, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(st),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Str("batch_store", cfg.BatchStore).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info().Msg("shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Err(err).Msg("error stopping server")
			return err
		}
		return nil
	})

	return g.Wait()
}

func newStore(kind string, db *gorm.DB, rdb *redis.Client) (storage.Store, error) {
	switch kind {
	case config.StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: postgres store without database", config.ErrInvalidConfig)
		}
		return storage.NewPostgresStore(db), nil
	case config.StoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%w: redis store without client", config.ErrInvalidConfig)
		}
		return storage.NewRedisStore(rdb), nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

// NewState wires the ticketing components around a store. db may be nil.
func NewState(cfg *config.Config, store storage.Store, db *gorm.DB, logger zerolog.Logger) (*state.State, error) {
	events := catalog.Default()
	if cfg.CatalogFile != "" {
		var err error
		events, err = catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	encoder := qr.NewEncoder(qr.WithLogger(logger.With().Str("component", "qr").Logger()))
	builder := tickets.NewBuilder(encoder, cfg.QRSize)

	return &state.State{
		Catalog:       events,
		Sessions:      booking.NewSessions(cfg.MaxTicketsPerType),
		Pipeline:      booking.NewPipeline(builder, store, logger.With().Str("component", "pipeline").Logger()),
		Builder:       builder,
		Verifier:      tickets.NewVerifier(qr.NewDecoder()),
		Store:         store,
		DB:            db,
		JWTSecret:     cfg.JWTSecret,
		PaymentSecret: cfg.PaymentSecret,
		Logger:        logger,
	}, nil
}

func NewRouter(st *state.State) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.LoggerMiddleware(st.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupRoutes(r, st)
	return r
}

func setupRoutes(r *gin.Engine, st *state.State) {
	r.Use(middleware.StateMiddleware(st))

	public := r.Group("/v1")
	{
		if st.DB != nil {
			public.POST("/register", handlers.Register)
			public.POST("/login", handlers.Login)
		}

		eventPublic := public.Group("/events")
		{
			eventPublic.GET("", handlers.ListEvents)
			eventPublic.GET("/:id", handlers.GetEvent)
		}

		bookingPublic := public.Group("/bookings")
		{
			bookingPublic.POST("", handlers.CreateBooking)
			bookingPublic.GET("/:id", handlers.GetBooking)
			bookingPublic.POST("/:id/selection", handlers.UpdateSelection)
			bookingPublic.POST("/:id/confirm", handlers.ConfirmBooking)
			bookingPublic.DELETE("/:id", handlers.AbandonBooking)
			bookingPublic.POST("/:id/payment-success", middleware.PaymentSignatureMiddleware(st.PaymentSecret), handlers.PaymentSucceeded)
		}

		public.GET("/transactions/:transactionId/tickets", handlers.ListTransactionTickets)

		ticketPublic := public.Group("/tickets")
		{
			ticketPublic.GET("/:ticketNumber/download", handlers.DownloadTicket)
			ticketPublic.GET("/:ticketNumber/qr.png", handlers.TicketQR)
			ticketPublic.POST("/verify", handlers.VerifyTicket)
			ticketPublic.POST("/verify-image", handlers.VerifyTicketImage)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware(st.JWTSecret, models.RoleOrganizer))
	{
		protected.POST("/tickets/check-in", handlers.CheckInTicket)
		protected.GET("/dashboard", handlers.Dashboard)
		if st.DB != nil {
			protected.GET("/profile", handlers.GetProfile)
		}
	}
}
