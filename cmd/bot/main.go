package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rewardbot/internal/bot"
	"rewardbot/internal/config"
	"rewardbot/internal/infrastructure/cache"
	"rewardbot/internal/infrastructure/database"
	"rewardbot/internal/infrastructure/mq"
	"rewardbot/internal/job"
	"rewardbot/internal/ops"
	"rewardbot/internal/repository"
	"rewardbot/internal/service"
	"rewardbot/pkg/idgen"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// 加载配置
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	// 初始化 ID 生成器
	idgen.Init(1)

	// 初始化 MySQL
	db, err := database.InitMySQL(&cfg.MySQL)
	if err != nil {
		log.Fatalf("MySQL 初始化失败: %v", err)
	}
	log.Info("MySQL 连接成功")

	// 初始化 Redis
	redisClient, err := cache.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Redis 初始化失败: %v", err)
	}
	log.Info("Redis 连接成功")

	// 仓储层
	userRepo := repository.NewUserRepository(db)
	codeRepo := repository.NewCodeRepository(db)
	withdrawRepo := repository.NewWithdrawRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	banRepo := repository.NewBanRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// 播种默认配置
	if err := settingRepo.EnsureDefaults(context.Background()); err != nil {
		log.Fatalf("默认配置播种失败: %v", err)
	}

	// Telegram 接入
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatalf("Telegram 初始化失败: %v", err)
	}
	notifier := bot.NewTelegramNotifier(api)

	// 服务层
	walletService := service.NewWalletService(db, log, userRepo, codeRepo, eventRepo)
	withdrawService := service.NewWithdrawService(db, log, redisClient, userRepo, withdrawRepo, settingRepo, eventRepo, notifier)
	adminService := service.NewAdminService(log, userRepo, codeRepo, withdrawRepo, linkRepo, settingRepo, banRepo, notifier)

	// 对话状态机
	sessionStore := bot.NewRedisSessionStore(redisClient, time.Duration(cfg.Redis.SessionTTLMinutes)*time.Minute)
	machine := bot.NewMachine(log, cfg.Telegram.AdminID, cfg.Business.UsersPageSize, sessionStore, walletService, withdrawService, adminService)
	telegram := bot.NewTelegram(api, log, machine, cfg.Telegram.PollTimeoutSec)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 事件外发任务，未配置 Kafka 时事件表仅作本地审计
	if cfg.Kafka.Enabled() {
		producer, err := mq.NewProducer(&cfg.Kafka)
		if err != nil {
			log.Fatalf("Kafka 初始化失败: %v", err)
		}
		defer producer.Close()
		log.Info("Kafka 生产者创建成功")

		publisher := job.NewEventPublisher(db, log, producer, cfg.Business.MaxRetryCount)
		go publisher.Start(ctx)
	}

	// 滞留提现提醒任务
	reminder := job.NewWithdrawReminder(
		db, log, notifier, cfg.Telegram.AdminID,
		time.Duration(cfg.Business.ReminderIntervalMins)*time.Minute,
		time.Duration(cfg.Business.ReminderAgeHours)*time.Hour,
	)
	go reminder.Start(ctx)

	// 运营 HTTP 服务
	router := ops.SetupRouter(log, walletService, withdrawService, adminService, cfg.Business.LeaderboardSize)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Ops.Port),
		Handler: router,
	}
	go func() {
		log.Infof("运营服务启动，监听端口: %d", cfg.Ops.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("运营服务启动失败: %v", err)
		}
	}()

	// 启动长轮询
	go telegram.Run(ctx)

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 取消上下文，停止轮询与后台任务
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("运营服务关闭异常: %v", err)
	}

	log.Info("服务已关闭")
}
