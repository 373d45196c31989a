package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/auth"
	"github.com/dmitrijs2005/feedvault/internal/server/config"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedvault/internal/server/storage"
)

const refundBatchSize = 100

// IssuedDownload is the result of a successful issuance.
type IssuedDownload struct {
	Token          string
	URL            string
	ExpiresAt      time.Time
	RemainingBytes int64
}

// DownloadStream is an opened file ready to be copied to the client.
// The caller must close Body.
type DownloadStream struct {
	Claims *auth.DownloadClaims
	Body   io.ReadCloser
	Size   int64
}

// DownloadService reserves quota and mints download tokens, then verifies
// and serves them. Quota is taken at issuance; grants that expire without a
// redemption are refunded by the sweeper.
type DownloadService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Storage
	signer      *auth.DownloadSigner
	log         logging.Logger
	ttl         time.Duration
	singleUse   bool
	baseURL     string
	now         func() time.Time
}

func NewDownloadService(db *sql.DB, m repomanager.RepositoryManager, store storage.Storage, cfg *config.Config, log logging.Logger) *DownloadService {
	s := &DownloadService{
		db:          db,
		repomanager: m,
		store:       store,
		log:         log.With("module", "downloads"),
		ttl:         cfg.DownloadTokenTTL,
		singleUse:   cfg.DownloadTokenPolicy == config.PolicySingleUse,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		now:         time.Now,
	}
	s.signer = auth.NewDownloadSigner(cfg.DownloadSecret()).WithClock(func() time.Time { return s.now() })
	return s
}

// Issue reserves the item's size against the user's quota and returns a
// signed token bound to the stored file. The reservation, the grant and the
// log row commit together.
func (s *DownloadService) Issue(ctx context.Context, userID, itemID string) (*IssuedDownload, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, fmt.Errorf("%w: file id is required", common.ErrorValidation)
	}

	item, err := s.repomanager.Feed(s.db).Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	ok, err := s.store.Exists(ctx, item.StorageKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Error(ctx, "stored file missing", "item_id", item.ID, "key", item.StorageKey)
		return nil, common.ErrNotFoundOnDisk
	}

	jti := uuid.NewString()
	token, expires, err := s.signer.Sign(auth.DownloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: jti, Subject: userID},
		FilePath:         item.StorageKey,
		FileName:         filepath.Base(item.StorageKey),
		FileSize:         item.FileSizeBytes,
		UserID:           userID,
		FeedItemID:       item.ID,
	}, s.ttl)
	if err != nil {
		return nil, common.ErrorInternal
	}

	var remaining int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		q, err := s.repomanager.Quota(tx).Reserve(ctx, userID, item.FileSizeBytes)
		if err != nil {
			return err
		}
		remaining = q.DownloadLimitBytes

		dl := s.repomanager.Downloads(tx)
		if err := dl.CreateGrant(ctx, &models.DownloadGrant{
			JTI:        jti,
			UserID:     userID,
			FeedItemID: item.ID,
			SizeBytes:  item.FileSizeBytes,
			ExpiresAt:  expires,
		}); err != nil {
			return fmt.Errorf("error creating grant: %w", err)
		}
		if err := dl.AppendLog(ctx, &models.DownloadRecord{
			UserID:     userID,
			FeedItemID: item.ID,
			SizeBytes:  item.FileSizeBytes,
		}); err != nil {
			return fmt.Errorf("error appending download log: %w", err)
		}
		return s.repomanager.Feed(tx).IncrementDownloads(ctx, item.ID)
	})
	if err != nil {
		if errors.Is(err, common.ErrInsufficientQuota) {
			s.log.Info(ctx, "insufficient quota", "user_id", userID, "item_id", item.ID, "size", item.FileSizeBytes)
		}
		return nil, err
	}

	s.log.Info(ctx, "download issued", "user_id", userID, "item_id", item.ID, "jti", jti)
	return &IssuedDownload{
		Token:          token,
		URL:            s.baseURL + "/api/feed/secure-download?token=" + url.QueryEscape(token),
		ExpiresAt:      expires,
		RemainingBytes: remaining,
	}, nil
}

// Verify checks the token and its grant without consuming it.
func (s *DownloadService) Verify(ctx context.Context, token string) (*auth.DownloadClaims, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	g, err := s.repomanager.Downloads(s.db).GetGrant(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpired
		}
		return nil, err
	}
	if g.RefundedAt != nil || (s.singleUse && g.RedeemedAt != nil) {
		return nil, common.ErrInvalidOrExpired
	}
	return claims, nil
}

// StartURL is the streaming endpoint for a verified token.
func (s *DownloadService) StartURL(token string) string {
	return s.baseURL + "/api/feed/start-download?token=" + url.QueryEscape(token)
}

// Open verifies the token, opens the file and records the redemption. The
// file is looked up by the base name carried in the token.
func (s *DownloadService) Open(ctx context.Context, token string) (*DownloadStream, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	body, size, err := s.store.Open(ctx, filepath.Base(claims.FileName))
	if err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Downloads(s.db).Redeem(ctx, claims.ID, s.singleUse, s.now()); err != nil {
		body.Close()
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOrExpired
		}
		return nil, err
	}

	return &DownloadStream{Claims: claims, Body: body, Size: size}, nil
}

// RefundExpired returns quota for grants that expired unredeemed. Each batch
// commits on its own.
func (s *DownloadService) RefundExpired(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := s.refundBatch(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n < refundBatchSize {
			return total, nil
		}
	}
}

func (s *DownloadService) refundBatch(ctx context.Context) (int, error) {
	now := s.now()
	n := 0
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		dl := s.repomanager.Downloads(tx)
		grants, err := dl.ClaimExpired(ctx, now, refundBatchSize)
		if err != nil {
			return fmt.Errorf("error claiming expired grants: %w", err)
		}
		q := s.repomanager.Quota(tx)
		for _, g := range grants {
			if _, err := q.Refund(ctx, g.UserID, g.SizeBytes); err != nil {
				return fmt.Errorf("error refunding grant %s: %w", g.JTI, err)
			}
			if err := dl.MarkRefunded(ctx, g.JTI, now); err != nil {
				return fmt.Errorf("error marking grant %s: %w", g.JTI, err)
			}
		}
		n = len(grants)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RunRefundSweeper calls RefundExpired every interval until ctx is done.
// A non-positive interval disables the sweeper.
func (s *DownloadService) RunRefundSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.Info(ctx, "refund sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.RefundExpired(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.Error(ctx, "refund sweep failed", "error", err)
			}
			if n > 0 {
				s.log.Info(ctx, "refunded expired grants", "count", n)
			}
		}
	}
}
