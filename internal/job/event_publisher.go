package job

import (
	"context"
	"time"

	"rewardbot/internal/infrastructure/mq"
	"rewardbot/internal/model"
	"rewardbot/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventPublisher 账本事件外发任务
// 轮询发件箱里的待发事件，投递到事件流后标记已发
type EventPublisher struct {
	log           *logrus.Logger
	eventRepo     *repository.EventRepository
	producer      *mq.Producer
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
	maxRetryCount int
}

func NewEventPublisher(db *gorm.DB, log *logrus.Logger, producer *mq.Producer, maxRetryCount int) *EventPublisher {
	return &EventPublisher{
		log:           log,
		eventRepo:     repository.NewEventRepository(db),
		producer:      producer,
		stopCh:        make(chan struct{}),
		interval:      time.Second,
		batchSize:     100,
		maxRetryCount: maxRetryCount,
	}
}

func (p *EventPublisher) Start(ctx context.Context) {
	p.log.Info("[EventPublisher] 事件外发任务启动")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("[EventPublisher] 收到停止信号，任务退出")
			return
		case <-p.stopCh:
			p.log.Info("[EventPublisher] 任务停止")
			return
		case <-ticker.C:
			p.drainPending(ctx)
		}
	}
}

func (p *EventPublisher) Stop() {
	close(p.stopCh)
}

func (p *EventPublisher) drainPending(ctx context.Context) {
	events, err := p.eventRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		p.log.Errorf("[EventPublisher] 查询待发事件失败: %v", err)
		return
	}

	for _, event := range events {
		p.publish(ctx, event)
	}
}

func (p *EventPublisher) publish(ctx context.Context, event *model.LedgerEvent) {
	err := p.producer.Send(event.EventKey, event.Payload)
	if err == nil {
		if updateErr := p.eventRepo.MarkSent(ctx, event.ID); updateErr != nil {
			p.log.Errorf("[EventPublisher] 更新事件状态失败: id=%d, err=%v", event.ID, updateErr)
		}
		return
	}

	p.log.Warnf("[EventPublisher] 事件投递失败: id=%d, err=%v", event.ID, err)

	if err := p.eventRepo.IncrementRetry(ctx, event.ID); err != nil {
		p.log.Errorf("[EventPublisher] 增加重试次数失败: id=%d, err=%v", event.ID, err)
	}

	if event.RetryCount+1 >= p.maxRetryCount {
		if err := p.eventRepo.MarkFailed(ctx, event.ID); err != nil {
			p.log.Errorf("[EventPublisher] 标记事件失败状态失败: id=%d, err=%v", event.ID, err)
		} else {
			p.log.Warnf("[EventPublisher] 事件超过最大重试次数，标记为失败: id=%d", event.ID)
		}
	}
}
