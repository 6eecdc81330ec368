package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rewardbot/internal/infrastructure/lock"
	"rewardbot/internal/model"
	"rewardbot/internal/repository"
	"rewardbot/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBelowMinimum        = errors.New("提现金额低于最低限额")
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	ErrWithdrawNotFound    = repository.ErrWithdrawNotFound
)

// WithdrawOutcome 提现终结方式
type WithdrawOutcome string

const (
	OutcomeComplete WithdrawOutcome = "complete"
	OutcomeReturn   WithdrawOutcome = "return"
)

// WithdrawService 提现全流程：提交冻结、终结、通知
type WithdrawService struct {
	db           *gorm.DB
	log          *logrus.Logger
	redisClient  *redis.Client
	userRepo     *repository.UserRepository
	withdrawRepo *repository.WithdrawRepository
	settingRepo  *repository.SettingRepository
	eventRepo    *repository.EventRepository
	notifier     Notifier
}

func NewWithdrawService(
	db *gorm.DB,
	log *logrus.Logger,
	redisClient *redis.Client,
	userRepo *repository.UserRepository,
	withdrawRepo *repository.WithdrawRepository,
	settingRepo *repository.SettingRepository,
	eventRepo *repository.EventRepository,
	notifier Notifier,
) *WithdrawService {
	return &WithdrawService{
		db:           db,
		log:          log,
		redisClient:  redisClient,
		userRepo:     userRepo,
		withdrawRepo: withdrawRepo,
		settingRepo:  settingRepo,
		eventRepo:    eventRepo,
		notifier:     notifier,
	}
}

// MinWithdraw 当前最低提现额，配置缺失或损坏时回退默认值
func (s *WithdrawService) MinWithdraw(ctx context.Context) decimal.Decimal {
	fallback, _ := decimal.NewFromString(model.DefaultSettings[model.SettingMinWithdraw])
	raw, err := s.settingRepo.Get(ctx, model.SettingMinWithdraw)
	if err != nil {
		return fallback
	}
	min, err := decimal.NewFromString(raw)
	if err != nil {
		s.log.Warnf("最低提现额配置损坏: %q, 回退默认值", raw)
		return fallback
	}
	return min
}

// Submit 提交提现申请
// 扣款与建单在同一事务：余额不足时整体回滚，不会出现已扣款无单据
func (s *WithdrawService) Submit(ctx context.Context, userID int64, amount decimal.Decimal, upiID string) (*model.WithdrawRequest, error) {
	min := s.MinWithdraw(ctx)
	if amount.LessThan(min) {
		return nil, fmt.Errorf("%w: 最低 %s", ErrBelowMinimum, min)
	}

	req := &model.WithdrawRequest{
		ID:     idgen.NextID(),
		UserID: userID,
		Amount: amount,
		UpiID:  upiID,
		Status: model.WithdrawStatusPending,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.DeductBalance(ctx, tx, userID, amount); err != nil {
			return err
		}
		if err := s.withdrawRepo.Create(ctx, tx, req); err != nil {
			return err
		}
		return s.eventRepo.Create(ctx, tx, s.newEvent(model.EventTypeWithdrawSubmit, userID, amount, req.ID))
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("提现申请已提交: id=%d user=%d amount=%s", req.ID, userID, amount)
	return req, nil
}

// Resolve 终结一笔待处理提现
// 已终结或不存在的单据统一返回 ErrWithdrawNotFound，重复处理天然幂等
func (s *WithdrawService) Resolve(ctx context.Context, withdrawID int64, outcome WithdrawOutcome) (*model.WithdrawRequest, error) {
	if s.redisClient != nil {
		resolveLock := lock.NewResolveLock(s.redisClient, withdrawID, uuid.New().String())
		ok, err := resolveLock.TryLock(ctx)
		if err != nil {
			s.log.Warnf("提现锁获取异常: id=%d err=%v", withdrawID, err)
		} else if !ok {
			return nil, ErrWithdrawNotFound
		} else {
			defer func() {
				if err := resolveLock.Unlock(context.Background()); err != nil {
					s.log.Warnf("提现锁释放失败: id=%d err=%v", withdrawID, err)
				}
			}()
		}
	}

	// 拿到锁后回读状态，拦截锁过期窗口内已被终结的单据
	req, err := s.withdrawRepo.GetPendingByID(ctx, withdrawID)
	if err != nil {
		return nil, err
	}

	var eventType, notice string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		switch outcome {
		case OutcomeComplete:
			if err := s.withdrawRepo.UpdateStatus(ctx, tx, req.ID, model.WithdrawStatusPending, model.WithdrawStatusCompleted); err != nil {
				return err
			}
			if err := s.userRepo.AddWithdrawn(ctx, tx, req.UserID, req.Amount); err != nil {
				return err
			}
			eventType = model.EventTypeWithdrawComplete
			notice = fmt.Sprintf("✅ Your withdrawal of ₹%s has been completed!", req.Amount)
		case OutcomeReturn:
			if err := s.withdrawRepo.UpdateStatus(ctx, tx, req.ID, model.WithdrawStatusPending, model.WithdrawStatusReturned); err != nil {
				return err
			}
			if err := s.userRepo.AddBalance(ctx, tx, req.UserID, req.Amount); err != nil {
				return err
			}
			eventType = model.EventTypeWithdrawReturn
			notice = fmt.Sprintf("↩️ Your withdrawal of ₹%s was returned. The amount is back in your balance.", req.Amount)
		default:
			return fmt.Errorf("未知的提现终结方式: %s", outcome)
		}
		return s.eventRepo.Create(ctx, tx, s.newEvent(eventType, req.UserID, req.Amount, req.ID))
	})
	if err != nil {
		return nil, err
	}

	// 回读落库后的单据，返回给调用方的是已终结状态
	req, err = s.withdrawRepo.GetByID(ctx, withdrawID)
	if err != nil {
		return nil, err
	}

	// 通知在事务外发送，失败只记日志
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, req.UserID, notice); err != nil {
			s.log.Warnf("提现通知发送失败: id=%d user=%d err=%v", req.ID, req.UserID, err)
		}
	}

	s.log.Infof("提现已终结: id=%d user=%d outcome=%s", req.ID, req.UserID, outcome)
	return req, nil
}

func (s *WithdrawService) PendingForUser(ctx context.Context, userID int64) ([]*model.WithdrawRequest, error) {
	return s.withdrawRepo.ListPendingByUser(ctx, userID)
}

func (s *WithdrawService) SearchPending(ctx context.Context, id int64) ([]*model.WithdrawRequest, error) {
	return s.withdrawRepo.SearchPending(ctx, id)
}

func (s *WithdrawService) PendingAll(ctx context.Context) ([]*model.WithdrawRequest, error) {
	return s.withdrawRepo.ListByStatus(ctx, model.WithdrawStatusPending, 0)
}

func (s *WithdrawService) Completed(ctx context.Context, limit int) ([]*model.WithdrawRequest, error) {
	return s.withdrawRepo.ListByStatus(ctx, model.WithdrawStatusCompleted, limit)
}

func (s *WithdrawService) PendingTotals(ctx context.Context) (*repository.PendingTotals, error) {
	return s.withdrawRepo.PendingTotals(ctx)
}

func (s *WithdrawService) newEvent(eventType string, userID int64, amount decimal.Decimal, withdrawID int64) *model.LedgerEvent {
	payload, _ := json.Marshal(map[string]interface{}{"withdraw_id": withdrawID})
	return &model.LedgerEvent{
		EventKey: uuid.New().String(),
		Type:     eventType,
		UserID:   userID,
		Amount:   amount,
		Payload:  string(payload),
	}
}
