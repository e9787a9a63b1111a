package services

import (
	"context"
	"log"
	"os"
	"time"

	"latanda-core/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronService runs the platform's scheduled jobs:
//   - hourly payout sweep over active groups
//   - daily contribution reminders (09:00)
//   - daily expired refresh token cleanup (03:00)
type CronService struct {
	cron        *cron.Cron
	payoutSvc   *PayoutService
	notify      *NotificationService
	groupRepo   repositories.GroupRepository
	contribRepo repositories.ContributionRepository
	tokenRepo   repositories.RefreshTokenRepository
}

// NewCronService wires the scheduler against a live database handle
func NewCronService(db *gorm.DB) *CronService {
	groupRepo := repositories.NewGroupRepository(db)
	contribRepo := repositories.NewContributionRepository(db)
	tokenRepo := repositories.NewRefreshTokenRepository(db)
	notify := NewNotificationService(os.Getenv("NOTIFY_WEBHOOK_URL"))

	return &CronService{
		cron:        cron.New(),
		payoutSvc:   NewPayoutService(groupRepo, contribRepo, notify),
		notify:      notify,
		groupRepo:   groupRepo,
		contribRepo: contribRepo,
		tokenRepo:   tokenRepo,
	}
}

// Start registers and starts all scheduled jobs
func (s *CronService) Start() {
	s.cron.AddFunc("0 * * * *", s.runPayoutSweep)
	s.cron.AddFunc("0 9 * * *", s.runContributionReminders)
	s.cron.AddFunc("0 3 * * *", s.runTokenCleanup)
	s.cron.Start()
	log.Println("⏰ Cron service started (payout sweep hourly, reminders 09:00, token cleanup 03:00)")
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("⏰ Cron service stopped")
}

// runPayoutSweep disburses every fully funded cycle
func (s *CronService) runPayoutSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	paid, err := s.payoutSvc.ProcessDuePayouts(ctx)
	if err != nil {
		log.Printf("❌ Payout sweep failed: %v", err)
		return
	}
	if paid > 0 {
		log.Printf("💸 Payout sweep: %d payout(s) disbursed", paid)
	}
}

// runContributionReminders pings every active group whose current cycle
// still has unpaid members
func (s *CronService) runContributionReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	groups, err := s.groupRepo.ListActive(ctx)
	if err != nil {
		log.Printf("❌ Reminder sweep failed: %v", err)
		return
	}

	for _, group := range groups {
		memberCount, err := s.groupRepo.CountActiveMembers(ctx, group.ID)
		if err != nil {
			continue
		}
		paid, err := s.contribRepo.CountPaid(ctx, group.ID, group.CurrentCycle)
		if err != nil {
			continue
		}
		if paid < memberCount {
			s.notify.NotifyContributionDue(group.Code, group.CurrentCycle, group.ContributionAmount, group.Currency)
		}
	}
}

// runTokenCleanup deletes expired refresh tokens
func (s *CronService) runTokenCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.tokenRepo.DeleteExpired(ctx); err != nil {
		log.Printf("❌ Token cleanup failed: %v", err)
		return
	}
	log.Println("🧹 Expired refresh tokens cleaned up")
}
