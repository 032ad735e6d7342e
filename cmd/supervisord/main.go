package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"Supervisor-Integration-Agent/internal/answer"
	"Supervisor-Integration-Agent/internal/api"
	"Supervisor-Integration-Agent/internal/audit"
	"Supervisor-Integration-Agent/internal/config"
	"Supervisor-Integration-Agent/internal/conversation"
	"Supervisor-Integration-Agent/internal/executor"
	"Supervisor-Integration-Agent/internal/invoker"
	"Supervisor-Integration-Agent/internal/llm"
	"Supervisor-Integration-Agent/internal/llm/langchain"
	"Supervisor-Integration-Agent/internal/observability/alerting"
	"Supervisor-Integration-Agent/internal/observability/metrics"
	"Supervisor-Integration-Agent/internal/planner"
	"Supervisor-Integration-Agent/internal/registry"
	"Supervisor-Integration-Agent/internal/supervisor"
	"Supervisor-Integration-Agent/pkg/logger"
)

// main 是 supervisor 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("supervisord 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	configPath := os.Getenv("SUPERVISOR_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "supervisor.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// 初始化大模型客户端。规划与回复合成都能在没有模型的情况下降级，
	// 因此初始化失败只降级，不阻止启动。
	llmClient := createLLMClient(cfg)

	historyStore, err := createConversationStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if historyStore != nil {
			_ = historyStore.Close()
		}
	}()

	auditQueue, err := createAuditQueue(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if auditQueue != nil {
			if err := auditQueue.Close(); err != nil {
				logger.L().Warn("关闭审计队列失败", slog.Any("error", err))
			}
		}
	}()

	loader := registry.FileLoader(cfg.Registry.Path)

	service := supervisor.New(
		loader,
		planner.New(llmClient),
		executor.New(invoker.New()),
		answer.New(llmClient),
		supervisor.WithConversationStore(historyStore, cfg.Conversation.HistoryLimit),
		supervisor.WithAuditRecorder(audit.NewRecorder(auditQueue)),
	)

	sink := audit.NewSink(auditQueue,
		audit.WithSinkWorkers(cfg.AuditQueue.Workers),
		audit.WithAlertDispatcher(createAlertDispatcher(cfg)),
	)

	sinkCtx, sinkCancel := context.WithCancel(ctx)
	defer sinkCancel()
	go func() {
		if err := sink.Start(sinkCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Error("审计消费异常退出", slog.Any("error", err))
		}
	}()

	if cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.StartServer(ctx, cfg.Metrics.Address); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("指标服务异常退出", slog.Any("error", err))
			}
		}()
	}

	server := api.NewServer(cfg.Server.Address, service, loader)

	logger.L().Info("supervisord 启动",
		slog.String("address", cfg.Server.Address),
		slog.String("registry", cfg.Registry.Path),
	)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// createLLMClient 按配置构建模型客户端，失败时返回 nil 以触发降级。
func createLLMClient(cfg *config.Config) llm.Client {
	switch cfg.LLM.Provider {
	case "", "openai":
		if cfg.LLM.APIKey == "" {
			logger.L().Warn("未配置模型 API key，规划与合成将使用降级路径")
			return nil
		}
		client, err := langchain.NewClient(langchain.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			logger.L().Warn("初始化模型客户端失败", slog.Any("error", err))
			return nil
		}
		return client
	default:
		logger.L().Warn("未知的大模型 provider", slog.String("provider", cfg.LLM.Provider))
		return nil
	}
}

func createConversationStore(cfg *config.Config) (conversation.Store, error) {
	switch cfg.Conversation.Driver {
	case "", "memory":
		return conversation.NewMemoryStore(), nil
	case "mysql":
		return conversation.NewMySQLStore(cfg.Conversation.DSN)
	default:
		return nil, fmt.Errorf("未知的会话存储驱动: %s", cfg.Conversation.Driver)
	}
}

func createAuditQueue(cfg *config.Config) (audit.Queue, error) {
	switch cfg.AuditQueue.Driver {
	case "", "memory":
		return audit.NewMemoryQueue(1024), nil
	case "redis":
		return audit.NewRedisQueue(audit.RedisQueueConfig{
			Address:  cfg.AuditQueue.Redis.Addr,
			Password: cfg.AuditQueue.Redis.Password,
			DB:       cfg.AuditQueue.Redis.DB,
			Queue:    cfg.AuditQueue.Redis.Queue,
		})
	case "rabbitmq":
		return audit.NewRabbitMQQueue(audit.RabbitMQConfig{
			URL:     cfg.AuditQueue.RabbitMQ.URL,
			Queue:   cfg.AuditQueue.RabbitMQ.Queue,
			Durable: true,
		})
	default:
		return nil, fmt.Errorf("未知的审计队列驱动: %s", cfg.AuditQueue.Driver)
	}
}

func createAlertDispatcher(cfg *config.Config) alerting.Dispatcher {
	if len(cfg.Alerting.Webhooks) == 0 {
		return nil
	}
	notifiers := make([]alerting.Notifier, 0, len(cfg.Alerting.Webhooks))
	for _, url := range cfg.Alerting.Webhooks {
		notifiers = append(notifiers, &alerting.WebhookNotifier{URL: url})
	}
	return alerting.NewFanout(notifiers...)
}
