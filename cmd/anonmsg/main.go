package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/anonmsg/internal/ai"
	"github.com/xxxsen/anonmsg/internal/config"
	"github.com/xxxsen/anonmsg/internal/handler"
	"github.com/xxxsen/anonmsg/internal/mail"
	"github.com/xxxsen/anonmsg/internal/middleware"
	"github.com/xxxsen/anonmsg/internal/repo"
	"github.com/xxxsen/anonmsg/internal/service"
)

func main() {
	var configPath string
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "anonmsg",
		Short: "anonymous message backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run anonmsg server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath, envFile)
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
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	runCmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file with overrides")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("store", cfg.Store.Type),
		zap.String("mail", cfg.Mail.Type),
		zap.Int("ai_providers", len(cfg.AI.Providers)),
	)

	accounts, closeStore, err := repo.New(context.Background(), cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := closeStore(ctx); err != nil {
			logutil.GetLogger(ctx).Error("close store failed", zap.Error(err))
		}
	}()

	sender, err := mail.NewSender(cfg.Mail)
	if err != nil {
		return fmt.Errorf("init mail sender: %w", err)
	}
	generator, err := ai.BuildGenerator(cfg.AI.Providers)
	if err != nil {
		return err
	}

	verifyService := service.NewVerificationService(accounts, time.Minute*time.Duration(cfg.VerifyCodeTTLMinutes))
	authService := service.NewAuthService(accounts, verifyService, sender, service.AuthOptions{
		JWTSecret:         []byte(cfg.JWTSecret),
		JWTTTL:            time.Hour * time.Duration(cfg.JWTTTLHours),
		AppName:           cfg.Mail.AppName,
		UnifySignInErrors: cfg.Auth.UnifySignInErrors,
	})
	accountService := service.NewAccountService(accounts)
	messageService := service.NewMessageService(accounts, cfg.Message.MinLength, cfg.Message.MaxLength)
	suggestionService := service.NewSuggestionService(generator, time.Second*time.Duration(cfg.AI.Timeout))

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authService, verifyService, cfg.Auth.CookieSecure),
		Accounts:    handler.NewAccountHandler(accountService),
		Messages:    handler.NewMessageHandler(messageService),
		Suggestions: handler.NewSuggestionHandler(suggestionService),
		Sessions:    authService,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
