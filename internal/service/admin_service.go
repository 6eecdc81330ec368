package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"rewardbot/internal/model"
	"rewardbot/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidURL    = errors.New("链接必须以 http:// 或 https:// 开头")
	ErrInvalidAmount = errors.New("金额不合法")
	ErrCodeExists    = errors.New("码已存在")
)

// Stats 运营统计快照
type Stats struct {
	TotalUsers       int64           `json:"total_users"`
	BannedUsers      int64           `json:"banned_users"`
	PendingWithdraws int64           `json:"pending_withdraws"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	UnclaimedCodes   int64           `json:"unclaimed_codes"`
	ClaimedCodes     int64           `json:"claimed_codes"`
}

// AdminService 管理面：内容、配置、封禁、群发
type AdminService struct {
	log          *logrus.Logger
	userRepo     *repository.UserRepository
	codeRepo     *repository.CodeRepository
	withdrawRepo *repository.WithdrawRepository
	linkRepo     *repository.LinkRepository
	settingRepo  *repository.SettingRepository
	banRepo      *repository.BanRepository
	notifier     Notifier
}

func NewAdminService(
	log *logrus.Logger,
	userRepo *repository.UserRepository,
	codeRepo *repository.CodeRepository,
	withdrawRepo *repository.WithdrawRepository,
	linkRepo *repository.LinkRepository,
	settingRepo *repository.SettingRepository,
	banRepo *repository.BanRepository,
	notifier Notifier,
) *AdminService {
	return &AdminService{
		log:          log,
		userRepo:     userRepo,
		codeRepo:     codeRepo,
		withdrawRepo: withdrawRepo,
		linkRepo:     linkRepo,
		settingRepo:  settingRepo,
		banRepo:      banRepo,
		notifier:     notifier,
	}
}

// AddLink 新增外链，只接受 http/https
func (s *AdminService) AddLink(ctx context.Context, title, rawURL string) (*model.Link, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, ErrInvalidURL
	}
	link := &model.Link{Title: strings.TrimSpace(title), URL: rawURL}
	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, err
	}
	s.log.Infof("新增链接: id=%d title=%s", link.ID, link.Title)
	return link, nil
}

func (s *AdminService) DeleteLink(ctx context.Context, id int64) error {
	return s.linkRepo.Delete(ctx, id)
}

func (s *AdminService) Links(ctx context.Context) ([]*model.Link, error) {
	return s.linkRepo.List(ctx)
}

// AddRedeemCode 投放兑换码，重复投放同一个码返回 ErrCodeExists
func (s *AdminService) AddRedeemCode(ctx context.Context, code string, reward decimal.Decimal) error {
	if reward.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if _, err := s.codeRepo.GetRedeemCode(ctx, code); err == nil {
		return ErrCodeExists
	} else if !errors.Is(err, repository.ErrCodeNotFound) {
		return err
	}
	return s.codeRepo.CreateRedeemCode(ctx, &model.RedeemCode{Code: code, Reward: reward})
}

func (s *AdminService) AddVerificationCode(ctx context.Context, code string) error {
	if _, err := s.codeRepo.GetVerificationCode(ctx, code); err == nil {
		return ErrCodeExists
	} else if !errors.Is(err, repository.ErrCodeNotFound) {
		return err
	}
	return s.codeRepo.CreateVerificationCode(ctx, code)
}

func (s *AdminService) DeleteVerificationCode(ctx context.Context, code string) error {
	return s.codeRepo.DeleteVerificationCode(ctx, code)
}

func (s *AdminService) VerificationCodes(ctx context.Context) ([]*model.VerificationCode, error) {
	return s.codeRepo.ListVerificationCodes(ctx)
}

func (s *AdminService) VerifyUsage(ctx context.Context) ([]repository.VerifyUsage, error) {
	return s.codeRepo.UsageCounts(ctx)
}

func (s *AdminService) SetMinWithdraw(ctx context.Context, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return s.settingRepo.Set(ctx, model.SettingMinWithdraw, amount.String())
}

func (s *AdminService) SetContactInfo(ctx context.Context, text string) error {
	return s.settingRepo.Set(ctx, model.SettingContactInfo, text)
}

func (s *AdminService) SetTutorialLink(ctx context.Context, text string) error {
	return s.settingRepo.Set(ctx, model.SettingTutorialLink, text)
}

func (s *AdminService) Setting(ctx context.Context, key string) (string, error) {
	value, err := s.settingRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return model.DefaultSettings[key], nil
		}
		return "", err
	}
	return value, nil
}

func (s *AdminService) Ban(ctx context.Context, userID int64) error {
	s.log.Infof("封禁用户: user=%d", userID)
	return s.banRepo.Ban(ctx, userID)
}

func (s *AdminService) Unban(ctx context.Context, userID int64) error {
	s.log.Infof("解封用户: user=%d", userID)
	return s.banRepo.Unban(ctx, userID)
}

func (s *AdminService) IsBanned(ctx context.Context, userID int64) (bool, error) {
	return s.banRepo.IsBanned(ctx, userID)
}

func (s *AdminService) BannedUsers(ctx context.Context) ([]*model.BanEntry, error) {
	return s.banRepo.ListBanned(ctx)
}

func (s *AdminService) Users(ctx context.Context, page, pageSize int) ([]*model.User, int64, error) {
	return s.userRepo.List(ctx, page, pageSize)
}

// Broadcast 向全体用户群发
// 对发送时刻的用户快照逐个投递，个别失败不中断，返回成功数
func (s *AdminService) Broadcast(ctx context.Context, text string) (int, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, user := range users {
		if err := s.notifier.Notify(ctx, user.ID, text); err != nil {
			s.log.Warnf("群发失败: user=%d err=%v", user.ID, err)
			continue
		}
		sent++
	}
	s.log.Infof("群发完成: sent=%d total=%d", sent, len(users))
	return sent, nil
}

// SendDirect 向指定用户单发消息
func (s *AdminService) SendDirect(ctx context.Context, userID int64, text string) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.notifier.Notify(ctx, userID, text)
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	totalUsers, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	banned, err := s.banRepo.ListBanned(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.withdrawRepo.PendingTotals(ctx)
	if err != nil {
		return nil, err
	}
	unclaimed, err := s.codeRepo.CountRedeem(ctx, false)
	if err != nil {
		return nil, err
	}
	claimed, err := s.codeRepo.CountRedeem(ctx, true)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalUsers:       totalUsers,
		BannedUsers:      int64(len(banned)),
		PendingWithdraws: totals.Count,
		PendingAmount:    totals.Total,
		UnclaimedCodes:   unclaimed,
		ClaimedCodes:     claimed,
	}, nil
}
