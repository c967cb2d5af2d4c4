package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"memento-client/internal/domain"
	"memento-client/internal/schema"
	"memento-client/internal/service/calllist"
	"memento-client/pkg/config"
	apperrors "memento-client/pkg/errors"
	"memento-client/pkg/logger"
	"memento-client/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	asJSON := flag.Bool("json", false, "print the call history as JSON")
	encoding := flag.String("encoding", "", "Accept-Encoding to request (overrides MEMENTO_ENCODING)")
	flag.Parse()

	// 1. Load configuration
	cfg := config.Load()
	if *encoding != "" {
		cfg.Client.Encoding = *encoding
	}
	if cfg.Client.Debug && cfg.Log.Level == "info" {
		cfg.Log.Level = "debug"
	}

	// 2. Initialize logger
	if err := logger.Init(&logger.Config{
		Level:    cfg.Log.Level,
		Format:   cfg.Log.Format,
		Output:   cfg.Log.Output,
		FilePath: cfg.Log.FilePath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if err := cfg.ValidateClient(); err != nil {
		return fail(err)
	}

	// 3. Load the call-list schema
	s, err := loadSchema(cfg.Client.SchemaPath)
	if err != nil {
		return fail(err)
	}

	// 4. Build the service
	m := metrics.NewMetrics("memento-client")
	svc, err := calllist.NewService(calllist.Options{
		Server:             cfg.Client.Server,
		User:               cfg.Client.User,
		Username:           cfg.Client.Username,
		Password:           cfg.Client.Password,
		Encoding:           cfg.Client.Encoding,
		Timeout:            cfg.Client.Timeout,
		InsecureSkipVerify: cfg.Client.InsecureSkipVerify,
		Debug:              cfg.Client.Debug,
	}, s, calllist.WithMetrics(m))
	if err != nil {
		return fail(err)
	}

	// 5. Fetch
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, fetchErr := svc.Fetch(ctx)
	if cfg.Metrics.TextfilePath != "" {
		if err := m.WriteToTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("Failed to write metrics textfile", zap.String("path", cfg.Metrics.TextfilePath), zap.Error(err))
		}
	}
	if fetchErr != nil {
		return fail(fetchErr)
	}

	if err := printHistory(history, *asJSON); err != nil {
		return fail(err)
	}
	return 0
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.LoadDefault()
	}
	return schema.Load(path)
}

func printHistory(history *domain.CallHistory, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Println(history.String())
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(history)
}

// fail reports err on stderr and returns the exit status for its code
func fail(err error) int {
	code := apperrors.CodeOf(err)
	fmt.Fprintf(os.Stderr, "memento-client: %v\n", err)
	return exitCodes[code]
}

var exitCodes = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeInternal:            1,
	apperrors.ErrCodeConfigInvalid:       2,
	apperrors.ErrCodeTransport:           3,
	apperrors.ErrCodeEncodingMismatch:    4,
	apperrors.ErrCodeContentTypeMismatch: 4,
	apperrors.ErrCodeMalformedXML:        5,
	apperrors.ErrCodeSchemaInvalid:       5,
	apperrors.ErrCodeTimestampParse:      5,
}
