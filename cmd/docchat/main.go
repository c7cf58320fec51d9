package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/chunker"
	"github.com/xxxsen/docchat/internal/config"
	"github.com/xxxsen/docchat/internal/filestore"
	"github.com/xxxsen/docchat/internal/handler"
	"github.com/xxxsen/docchat/internal/index"
	"github.com/xxxsen/docchat/internal/job"
	"github.com/xxxsen/docchat/internal/middleware"
	"github.com/xxxsen/docchat/internal/repo"
	"github.com/xxxsen/docchat/internal/schedule"
	"github.com/xxxsen/docchat/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docchat",
		Short: "docchat rag server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docchat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			db, err := repo.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := repo.ApplyMigrations(db); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, db)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, db *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_path", cfg.DBPath),
		zap.String("index", cfg.Index.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	documentRepo := repo.NewDocumentRepo(db)
	chatRepo := repo.NewChatRepo(db)

	chatProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	completer := ai.NewCompleter(chatProvider, cfg.AI.Model, cfg.AI.Timeout)

	var embedder ai.IEmbedder
	if cfg.AI.EmbedProvider != "" && cfg.AI.EmbedModel != "" {
		embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedData)
		if err != nil {
			return fmt.Errorf("init embed provider: %w", err)
		}
		embedder = ai.NewCachedEmbedder(ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel))
	}

	idx, err := index.New(cfg.Index, embedder)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}

	var files filestore.Store
	if cfg.FileStore.Type != "" {
		files, err = filestore.New(cfg.FileStore)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
	}

	ragService := service.NewRAGService(service.RAGServiceDeps{
		Index:        idx,
		Completer:    completer,
		Documents:    documentRepo,
		Chats:        chatRepo,
		Files:        files,
		Chunker:      chunker.New(cfg.Chunk.Size, cfg.Chunk.Overlap),
		TopK:         cfg.TopK,
		HistoryLimit: cfg.History.Limit,
	})

	deps := handler.RouterDeps{
		RAG: handler.NewRAGHandler(ragService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/rag/query/stream"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if cfg.History.RetentionDays > 0 {
		cleanup := job.NewChatCleanupJob(chatRepo, cfg.History.RetentionDays)
		if err := scheduler.AddJob(cleanup, cfg.History.CleanupCron); err != nil {
			return fmt.Errorf("schedule chat cleanup: %w", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
