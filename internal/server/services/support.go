package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/repomanager"
)

// SupportService keeps one conversation per user with the admins.
type SupportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewSupportService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *SupportService {
	return &SupportService{db: db, repomanager: m, log: log.With("module", "support")}
}

// Send appends a user message, opening the thread on first contact.
func (s *SupportService) Send(ctx context.Context, user *models.User, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("%w: message cannot be empty", common.ErrorValidation)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Support(tx)

		thread, err := repo.GetByUser(ctx, user.ID)
		if errors.Is(err, common.ErrorNotFound) {
			thread, err = repo.Create(ctx, user.ID, user.Name)
		}
		if err != nil {
			return fmt.Errorf("error loading support thread: %w", err)
		}

		return repo.AddMessage(ctx, thread.ID, models.SenderUser, message)
	})
}

// Mine returns the user's thread, or an empty one if they never wrote.
func (s *SupportService) Mine(ctx context.Context, userID string) (*models.SupportThread, error) {
	thread, err := s.repomanager.Support(s.db).GetByUser(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return &models.SupportThread{Conversation: []models.SupportMessage{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if thread.Conversation == nil {
		thread.Conversation = []models.SupportMessage{}
	}
	return thread, nil
}

// List returns every thread, most recently active first.
func (s *SupportService) List(ctx context.Context) ([]models.SupportThread, error) {
	return s.repomanager.Support(s.db).List(ctx)
}

// Reply adds an admin message and marks the thread resolved.
func (s *SupportService) Reply(ctx context.Context, threadID, reply string) error {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fmt.Errorf("%w: reply cannot be empty", common.ErrorValidation)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Support(tx)
		if _, err := repo.Get(ctx, threadID); err != nil {
			return err
		}
		if err := repo.AddMessage(ctx, threadID, models.SenderAdmin, reply); err != nil {
			return err
		}
		return repo.SetStatus(ctx, threadID, models.ThreadResolved)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "support reply sent", "thread_id", threadID)
	return nil
}
