package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rewardbot/internal/model"
	"rewardbot/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrCodeNotFound = errors.New("兑换码无效")
	ErrNotEligible  = errors.New("未完成验证，无兑换资格")
)

// AlreadyClaimedError 兑换码已被他人领取，附带领取者展示名
type AlreadyClaimedError struct {
	ClaimedBy string
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("兑换码已被领取: %s", e.ClaimedBy)
}

// WalletService 余额、兑换与验证
type WalletService struct {
	db        *gorm.DB
	log       *logrus.Logger
	userRepo  *repository.UserRepository
	codeRepo  *repository.CodeRepository
	eventRepo *repository.EventRepository
}

func NewWalletService(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo *repository.UserRepository,
	codeRepo *repository.CodeRepository,
	eventRepo *repository.EventRepository,
) *WalletService {
	return &WalletService{
		db:        db,
		log:       log,
		userRepo:  userRepo,
		codeRepo:  codeRepo,
		eventRepo: eventRepo,
	}
}

// EnsureUser 首次交互建档，后续仅刷新展示名
func (s *WalletService) EnsureUser(ctx context.Context, userID int64, username, firstName string) error {
	return s.userRepo.Upsert(ctx, &model.User{
		ID:        userID,
		Username:  username,
		FirstName: firstName,
	})
}

func (s *WalletService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// Redeem 兑换一个码并返回入账金额
// 占码与加余额在同一事务内，并发重复兑换只有一方成功
func (s *WalletService) Redeem(ctx context.Context, userID int64, code string) (decimal.Decimal, error) {
	eligible, err := s.codeRepo.HasAnyVerification(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if !eligible {
		return decimal.Zero, ErrNotEligible
	}

	rc, err := s.codeRepo.GetRedeemCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return decimal.Zero, ErrCodeNotFound
		}
		return decimal.Zero, err
	}
	if rc.ClaimedBy != nil {
		return decimal.Zero, s.alreadyClaimed(ctx, *rc.ClaimedBy)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.codeRepo.ClaimRedeemCode(ctx, tx, code, userID); err != nil {
			return err
		}
		if err := s.userRepo.AddBalance(ctx, tx, userID, rc.Reward); err != nil {
			return err
		}
		return s.eventRepo.Create(ctx, tx, s.newEvent(model.EventTypeRedeem, userID, rc.Reward, map[string]interface{}{
			"code": code,
		}))
	})
	if err != nil {
		if errors.Is(err, repository.ErrCodeClaimed) {
			// 事务内被并发抢先，回读领取者
			if rc, rerr := s.codeRepo.GetRedeemCode(ctx, code); rerr == nil && rc.ClaimedBy != nil {
				return decimal.Zero, s.alreadyClaimed(ctx, *rc.ClaimedBy)
			}
			return decimal.Zero, &AlreadyClaimedError{ClaimedBy: "unknown"}
		}
		return decimal.Zero, err
	}

	s.log.Infof("兑换成功: user=%d code=%s reward=%s", userID, code, rc.Reward)
	return rc.Reward, nil
}

func (s *WalletService) alreadyClaimed(ctx context.Context, claimedBy int64) error {
	name := fmt.Sprintf("User ID %d", claimedBy)
	if u, err := s.userRepo.GetByID(ctx, claimedBy); err == nil {
		name = u.DisplayName()
	}
	return &AlreadyClaimedError{ClaimedBy: name}
}

// Verify 用户提交验证码，成功后获得兑换资格
// 返回该用户是否已经用过这个码
func (s *WalletService) Verify(ctx context.Context, userID int64, code string) (alreadyDone bool, err error) {
	// 先查本人用码记录：码事后被管理员删除时，重复提交仍报已使用而非无效
	done, err := s.codeRepo.HasUserVerified(ctx, userID, code)
	if err != nil {
		return false, err
	}
	if done {
		return true, nil
	}

	if _, err := s.codeRepo.GetVerificationCode(ctx, code); err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return false, ErrCodeNotFound
		}
		return false, err
	}

	if err := s.codeRepo.RecordVerification(ctx, userID, code); err != nil {
		return false, err
	}
	s.log.Infof("验证通过: user=%d code=%s", userID, code)
	return false, nil
}

// AdjustBalance 管理员手工调账，delta 可为负且不设余额下限
func (s *WalletService) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.AddBalance(ctx, tx, userID, delta); err != nil {
			return err
		}
		return s.eventRepo.Create(ctx, tx, s.newEvent(model.EventTypeAdminAdjust, userID, delta, nil))
	})
	if err != nil {
		return err
	}
	s.log.Infof("管理员调账: user=%d delta=%s", userID, delta)
	return nil
}

func (s *WalletService) Leaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	return s.userRepo.Leaderboard(ctx, limit)
}

func (s *WalletService) newEvent(eventType string, userID int64, amount decimal.Decimal, extra map[string]interface{}) *model.LedgerEvent {
	payload := "{}"
	if extra != nil {
		if data, err := json.Marshal(extra); err == nil {
			payload = string(data)
		}
	}
	return &model.LedgerEvent{
		EventKey: uuid.New().String(),
		Type:     eventType,
		UserID:   userID,
		Amount:   amount,
		Payload:  payload,
	}
}
