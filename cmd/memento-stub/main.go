package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	calllistHandler "memento-client/internal/handler/http/calllist"
	"memento-client/internal/middleware"
	"memento-client/pkg/config"
	"memento-client/pkg/logger"
	"memento-client/pkg/metrics"
	"memento-client/pkg/password"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a password for STUB_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := password.Hash(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "memento-stub: %v\n", err)
			os.Exit(2)
		}
		fmt.Println(hash)
		return
	}

	// 1. Load configuration
	cfg := config.Load()
	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.ValidateStub(); err != nil {
		logger.Fatal("Invalid stub configuration", zap.Error(err))
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 2. Setup router
	m := metrics.NewMetrics(calllistHandler.ServiceName)
	handler := calllistHandler.NewHandler(calllistHandler.NewDirStore(cfg.Stub.CallListDir))
	router := calllistHandler.NewRouter(handler, middleware.Credentials{
		Username:     cfg.Stub.Username,
		PasswordHash: cfg.Stub.PasswordHash,
	}, m)

	// 3. Start server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Stub.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Memento stub starting",
			zap.Int("port", cfg.Stub.Port),
			zap.String("call_list_dir", cfg.Stub.CallListDir))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
