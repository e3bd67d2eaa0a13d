package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/priorityhuddle/huddle/internal/auth"
	"github.com/priorityhuddle/huddle/internal/boards"
	"github.com/priorityhuddle/huddle/internal/config"
	"github.com/priorityhuddle/huddle/internal/database"
	"github.com/priorityhuddle/huddle/internal/ident"
	"github.com/priorityhuddle/huddle/internal/logging"
	"github.com/priorityhuddle/huddle/internal/notes"
	"github.com/priorityhuddle/huddle/internal/realtime"
	"github.com/priorityhuddle/huddle/internal/scoring"
	"github.com/priorityhuddle/huddle/internal/server"
	"github.com/priorityhuddle/huddle/internal/users"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "huddle-api",
		Short: "Priority Huddle collaborative board service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Access token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")
	cmd.PersistentFlags().String("scoring-api-key", "", "Classifier API key (overrides env)")
	cmd.PersistentFlags().String("scoring-model", defaults.GetString("scoring.model"), "Classifier model name")
	cmd.PersistentFlags().Float64("default-ai-weight", defaults.GetFloat64("scoring.default_ai_weight"), "Default AI weight for new boards")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "scoring.api_key", "scoring-api-key")
	bindFlag(cmd, "scoring.model", "scoring-model")
	bindFlag(cmd, "scoring.default_ai_weight", "default-ai-weight")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "huddle-auth",
		Audience:      "huddle-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	idProvider := ident.NewUUIDProvider()

	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	boardsService, err := boards.NewService(boards.ServiceConfig{
		Database:        db,
		IDProvider:      idProvider,
		DefaultAIWeight: appConfig.DefaultAIWeight,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	// Without an API key the engine runs on the deterministic rule scorer.
	var classifier scoring.Classifier
	if appConfig.ScoringAPIKey != "" {
		geminiClassifier, err := scoring.NewGeminiClassifier(scoring.ClassifierConfig{
			APIKey:  appConfig.ScoringAPIKey,
			Model:   appConfig.ScoringModel,
			BaseURL: appConfig.ScoringBaseURL,
			Timeout: appConfig.ScoringTimeout,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		classifier = geminiClassifier
	} else {
		logger.Warn("scoring api key not configured, using rule-based scorer")
	}
	engine := scoring.NewEngine(classifier, logger)

	dispatcher := realtime.NewDispatcher()

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Boards:     boardsService,
		Users:      usersService,
		Engine:     engine,
		Publisher:  dispatcher,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:  tokenManager,
		UsersService:  usersService,
		BoardsService: boardsService,
		NotesService:  notesService,
		Realtime:      dispatcher,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
