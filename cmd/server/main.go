package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/perpusda/sipus/internal/config"
	"github.com/perpusda/sipus/internal/entity"
	"github.com/perpusda/sipus/internal/middleware"
	cataloghandler "github.com/perpusda/sipus/internal/modules/catalog/delivery/http"
	catalogrepo "github.com/perpusda/sipus/internal/modules/catalog/repository"
	catalogsvc "github.com/perpusda/sipus/internal/modules/catalog/service"
	importhandler "github.com/perpusda/sipus/internal/modules/importer/delivery/http"
	importsvc "github.com/perpusda/sipus/internal/modules/importer/service"
	masterhandler "github.com/perpusda/sipus/internal/modules/masterdata/delivery/http"
	masterrepo "github.com/perpusda/sipus/internal/modules/masterdata/repository"
	mastersvc "github.com/perpusda/sipus/internal/modules/masterdata/service"
	opachandler "github.com/perpusda/sipus/internal/modules/opac/delivery/http"
	opacsvc "github.com/perpusda/sipus/internal/modules/opac/service"
	puskelhandler "github.com/perpusda/sipus/internal/modules/puskel/delivery/http"
	puskelrepo "github.com/perpusda/sipus/internal/modules/puskel/repository"
	puskelsvc "github.com/perpusda/sipus/internal/modules/puskel/service"
	roomhandler "github.com/perpusda/sipus/internal/modules/room/delivery/http"
	roomrepo "github.com/perpusda/sipus/internal/modules/room/repository"
	roomsvc "github.com/perpusda/sipus/internal/modules/room/service"
	stathandler "github.com/perpusda/sipus/internal/modules/stat/delivery/http"
	statsvc "github.com/perpusda/sipus/internal/modules/stat/service"
	userhandler "github.com/perpusda/sipus/internal/modules/user/delivery/http"
	usersvc "github.com/perpusda/sipus/internal/modules/user/service"
	"github.com/perpusda/sipus/internal/search"
	"github.com/perpusda/sipus/pkg/database"
	"github.com/perpusda/sipus/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := seedSuperAdmin(db); err != nil {
		log.Fatalf("failed to seed super admin: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("redis unreachable, continuing without it: %v", err)
			rdb = nil
		}
	}

	var indexer search.Indexer
	if cfg.MeiliSearchHost != "" {
		client := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		indexer = search.NewMeiliIndexer(client)
	}

	images, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to initialize image store: %v", err)
	}
	fetcher := storage.NewFetcher(images, cfg.ImageDownloadTimeout, cfg.ImageMaxWidth)

	bookRepo := catalogrepo.NewRepository(db)
	masterRepo := masterrepo.NewRepository(db)

	catalogService := catalogsvc.NewCatalogService(db, bookRepo, masterRepo, images, fetcher, indexer)
	catalogHandler := cataloghandler.NewCatalogHandler(catalogService)

	reconciler := importsvc.NewReconciler(db, bookRepo, masterRepo, images, fetcher)
	importHandler := importhandler.NewImportHandler(reconciler)

	masterService := mastersvc.NewMasterdataService(masterRepo)
	masterHandler := masterhandler.NewMasterdataHandler(masterService)

	opacService := opacsvc.NewOpacService(bookRepo, indexer, rdb, cfg.RateLimitSearch)
	opacHandler := opachandler.NewOpacHandler(opacService)

	puskelService := puskelsvc.NewPuskelService(db, puskelrepo.NewRepository(db))
	puskelHandler := puskelhandler.NewPuskelHandler(puskelService)

	roomService := roomsvc.NewRoomService(db, roomrepo.NewRepository(db))
	roomHandler := roomhandler.NewRoomHandler(roomService)

	userService := usersvc.NewUserService(db, cfg.JWTSecret)
	userHandler := userhandler.NewUserHandler(userService)

	statService := statsvc.NewStatService(db, rdb)
	statHandler := stathandler.NewStatHandler(statService)

	go sweepOrphanImages(catalogService, cfg.OrphanSweepEvery)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AllowedOrigins},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	router.Static("/uploads/covers", cfg.UploadDir)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	api := router.Group("/api")
	{
		api.POST("/auth/login", userHandler.Login)

		opac := api.Group("/opac")
		{
			opac.GET("/books", opacHandler.SearchBooks)
			opac.GET("/books/:id", opacHandler.GetBook)
			opac.GET("/suggest", opacHandler.Suggest)
		}
	}

	admin := api.Group("/admin")
	admin.Use(authMiddleware.RequireAuth())
	{
		admin.GET("/me", userHandler.Me)
		admin.PUT("/password", userHandler.ChangePassword)

		admin.GET("/books", catalogHandler.ListBooks)
		admin.GET("/books/:id", catalogHandler.GetBook)
		admin.POST("/books", catalogHandler.CreateBook)
		admin.PUT("/books/:id", catalogHandler.UpdateBook)
		admin.DELETE("/books/:id", catalogHandler.DeleteBook)
		admin.POST("/books/relocate", catalogHandler.RelocateBooks)
		admin.GET("/books/export", catalogHandler.ExportBooks)
		admin.POST("/books/import", importHandler.ImportBooks)

		admin.GET("/masterdata/:kind", masterHandler.List)
		admin.POST("/masterdata/:kind", masterHandler.Create)
		admin.DELETE("/masterdata/:kind/:id", masterHandler.Delete)

		admin.GET("/dashboard", statHandler.Dashboard)

		super := admin.Group("")
		super.Use(authMiddleware.RequireSuperAdmin())
		{
			super.GET("/users", userHandler.ListUsers)

			super.GET("/rooms", roomHandler.ListRooms)
			super.POST("/rooms", roomHandler.CreateRoom)
			super.PUT("/rooms/:id", roomHandler.UpdateRoom)
			super.DELETE("/rooms/:id", roomHandler.DeleteRoom)

			super.GET("/institutions", puskelHandler.ListInstitutions)
			super.POST("/institutions", puskelHandler.CreateInstitution)
			super.PUT("/institutions/:id", puskelHandler.UpdateInstitution)
			super.DELETE("/institutions/:id", puskelHandler.DeleteInstitution)

			super.GET("/puskel/loans", puskelHandler.ListLoans)
			super.POST("/puskel/loans", puskelHandler.Lend)
			super.POST("/puskel/loans/:id/return", puskelHandler.Return)
		}
	}

	log.Printf("listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Room{},
		&entity.Category{},
		&entity.Author{},
		&entity.Publisher{},
		&entity.Subject{},
		&entity.Book{},
		&entity.BookAuthor{},
		&entity.BookCopy{},
		&entity.Institution{},
		&entity.PuskelLoan{},
	)
}

// seedSuperAdmin guarantees at least one login exists on a fresh database.
func seedSuperAdmin(db *gorm.DB) error {
	var existing entity.User
	err := db.Where("role = ?", entity.RoleSuperAdmin).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Create(&entity.User{
		Username:     "superadmin",
		PasswordHash: string(hash),
		Role:         entity.RoleSuperAdmin,
	}).Error
}

func sweepOrphanImages(service catalogsvc.CatalogService, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if err := service.SweepOrphanImages(ctx); err != nil {
			log.Printf("orphan image sweep failed: %v", err)
		}
		cancel()
	}
}
