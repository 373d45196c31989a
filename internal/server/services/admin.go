package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/repomanager"
)

const (
	activeUserWindow = 30 * 24 * time.Hour
	dashboardListLen = 5
)

type Dashboard struct {
	TotalUsers     int64
	ActiveUsers    int64
	RevenueCents   int64
	TotalDownloads int64
	Transactions   []models.Payment
	TopItems       []models.TopItem
}

type Profile struct {
	User      *models.User
	Payments  []models.Payment
	Downloads []models.DownloadRecord
}

// AdminService backs the admin dashboard, device management and the user
// profile page.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	now         func() time.Time
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *AdminService {
	return &AdminService{db: db, repomanager: m, log: log.With("module", "admin"), now: time.Now}
}

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		d   Dashboard
		err error
	)

	u := s.repomanager.Users(s.db)
	if d.TotalUsers, err = u.Count(ctx); err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}
	if d.ActiveUsers, err = u.CountActiveSince(ctx, s.now().Add(-activeUserWindow)); err != nil {
		return nil, fmt.Errorf("error counting active users: %w", err)
	}

	p := s.repomanager.Payments(s.db)
	if d.RevenueCents, err = p.RevenueCents(ctx); err != nil {
		return nil, fmt.Errorf("error summing revenue: %w", err)
	}
	if d.Transactions, err = p.Recent(ctx, dashboardListLen); err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}

	if d.TotalDownloads, err = s.repomanager.Downloads(s.db).CountLog(ctx); err != nil {
		return nil, fmt.Errorf("error counting downloads: %w", err)
	}
	if d.TopItems, err = s.repomanager.Feed(s.db).Top(ctx, dashboardListLen); err != nil {
		return nil, fmt.Errorf("error ranking items: %w", err)
	}

	return &d, nil
}

// Devices lists the admin's own devices, approved and pending.
func (s *AdminService) Devices(ctx context.Context, adminID string) ([]models.Device, error) {
	return s.repomanager.Devices(s.db).List(ctx, adminID)
}

func (s *AdminService) ApproveDevice(ctx context.Context, adminID, deviceToken string) error {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return fmt.Errorf("%w: device token is required", common.ErrorValidation)
	}
	if err := s.repomanager.Devices(s.db).Approve(ctx, adminID, deviceToken); err != nil {
		return err
	}
	s.log.Info(ctx, "device approved", "user_id", adminID)
	return nil
}

func (s *AdminService) RemoveDevice(ctx context.Context, adminID, deviceToken string) error {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return fmt.Errorf("%w: device token is required", common.ErrorValidation)
	}
	var revoked int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Devices(tx).Remove(ctx, adminID, deviceToken); err != nil {
			return err
		}
		n, err := s.repomanager.RefreshTokens(tx).RevokeDevice(ctx, adminID, deviceToken)
		if err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "device removed", "user_id", adminID, "sessions_revoked", revoked)
	return nil
}

func (s *AdminService) Payments(ctx context.Context) ([]models.Payment, error) {
	return s.repomanager.Payments(s.db).ListAll(ctx)
}

// Profile returns the user with their last five payments and downloads.
func (s *AdminService) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repomanager.Payments(s.db).ListByUser(ctx, userID, dashboardListLen)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	downloads, err := s.repomanager.Downloads(s.db).RecentByUser(ctx, userID, dashboardListLen)
	if err != nil {
		return nil, fmt.Errorf("error listing downloads: %w", err)
	}
	return &Profile{User: user, Payments: payments, Downloads: downloads}, nil
}
