package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/dbx"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/config"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/devices"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/feed"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/payments"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/quota"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/support"
	"github.com/dmitrijs2005/feedvault/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectCommit(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	cfg.AdminEmail = "boss@example.com"
	cfg.BaseURL = "http://files.test"
	cfg.FrontendURL = "http://front.test"
	return cfg
}

var nopLog = logging.Nop()

// dirNames lists regular files in dir, skipping dotfiles.
func dirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// memStore is an in-memory backing for every repository. Transactions are
// not modelled; sqlmock asserts the Begin/Commit/Rollback boundaries.
type memStore struct {
	mu sync.Mutex

	users     map[string]*models.User
	refresh   map[string]*models.RefreshToken
	devices   map[string]*models.Device
	logins    []models.LoginRecord
	items     map[string]*models.FeedItem
	grants    map[string]*models.DownloadGrant
	log       []models.DownloadRecord
	payments  map[string]*models.Payment
	threads   map[string]*models.SupportThread
	failOn    map[string]error
	callCount map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*models.User{},
		refresh:   map[string]*models.RefreshToken{},
		devices:   map[string]*models.Device{},
		items:     map[string]*models.FeedItem{},
		grants:    map[string]*models.DownloadGrant{},
		payments:  map[string]*models.Payment{},
		threads:   map[string]*models.SupportThread{},
		failOn:    map[string]error{},
		callCount: map[string]int{},
	}
}

// hit counts a call and returns the injected failure, if any. Callers hold mu.
func (m *memStore) hit(op string) error {
	m.callCount[op]++
	return m.failOn[op]
}

func (m *memStore) calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[op]
}

func (m *memStore) addUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = common.RoleUser
	}
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) user(id string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) addItem(it models.FeedItem) *models.FeedItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	m.items[it.ID] = &it
	return &it
}

type memManager struct{ s *memStore }

func (m memManager) RunMigrations(context.Context, *sql.DB) error          { return nil }
func (m memManager) Users(dbx.DBTX) users.Repository                       { return memUsers{m.s} }
func (m memManager) Quota(dbx.DBTX) quota.Repository                       { return memQuota{m.s} }
func (m memManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository       { return memRefresh{m.s} }
func (m memManager) Devices(dbx.DBTX) devices.Repository                   { return memDevices{m.s} }
func (m memManager) Feed(dbx.DBTX) feed.Repository                         { return memFeed{m.s} }
func (m memManager) Downloads(dbx.DBTX) downloads.Repository               { return memDownloads{m.s} }
func (m memManager) Payments(dbx.DBTX) payments.Repository                 { return memPayments{m.s} }
func (m memManager) Support(dbx.DBTX) support.Repository                   { return memSupport{m.s} }

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.Create"); err != nil {
		return nil, err
	}
	for _, x := range r.s.users {
		if x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = uuid.NewString()
	r.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, x := range r.s.users {
		if x.Email == email {
			out := *x
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.GetByID"); err != nil {
		return nil, err
	}
	x, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *x
	return &out, nil
}

func (r memUsers) RecordLogin(ctx context.Context, id string, info users.LoginInfo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("users.RecordLogin"); err != nil {
		return err
	}
	x, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	at := info.At
	x.LastLogin = &at
	x.IPAddress, x.UserAgent, x.Country, x.DeviceToken = info.IPAddress, info.UserAgent, info.Country, info.DeviceToken
	return nil
}

func (r memUsers) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), r.s.hit("users.Count")
}

func (r memUsers) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, x := range r.s.users {
		if x.LastLogin != nil && !x.LastLogin.Before(since) {
			n++
		}
	}
	return n, r.s.hit("users.CountActiveSince")
}

// --- quota ---

type memQuota struct{ s *memStore }

func snapshot(u *models.User) *models.Quota {
	return &models.Quota{
		DownloadLimitBytes:   u.DownloadLimitBytes,
		TotalPurchasedBytes:  u.TotalPurchasedBytes,
		TotalDownloadedBytes: u.TotalDownloadedBytes,
	}
}

func (r memQuota) Reserve(ctx context.Context, userID string, size int64) (*models.Quota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("quota.Reserve"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if u.DownloadLimitBytes < size {
		return nil, common.ErrInsufficientQuota
	}
	u.DownloadLimitBytes -= size
	u.TotalDownloadedBytes += size
	return snapshot(u), nil
}

func (r memQuota) Credit(ctx context.Context, userID string, size int64) (*models.Quota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("quota.Credit"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.DownloadLimitBytes += size
	u.TotalPurchasedBytes += size
	return snapshot(u), nil
}

func (r memQuota) Refund(ctx context.Context, userID string, size int64) (*models.Quota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("quota.Refund"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.DownloadLimitBytes += size
	u.TotalDownloadedBytes -= size
	if u.TotalDownloadedBytes < 0 {
		u.TotalDownloadedBytes = 0
	}
	return snapshot(u), nil
}

func (r memQuota) Get(ctx context.Context, userID string) (*models.Quota, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return snapshot(u), nil
}

// --- refresh tokens ---

type memRefresh struct{ s *memStore }

func (r memRefresh) Create(ctx context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("refresh.Create"); err != nil {
		return err
	}
	c := *t
	c.ID = uuid.NewString()
	r.s.refresh[t.Token] = &c
	return nil
}

func (r memRefresh) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("refresh.Find"); err != nil {
		return nil, err
	}
	t, ok := r.s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *t
	return &out, nil
}

func (r memRefresh) Delete(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("refresh.Delete"); err != nil {
		return err
	}
	delete(r.s.refresh, token)
	return nil
}

func (r memRefresh) DeleteExpired(ctx context.Context, userID string, now time.Time) (int64, error) {
	return r.deleteWhere("refresh.DeleteExpired", func(t *models.RefreshToken) bool {
		return t.UserID == userID && t.ExpiresAt.Before(now)
	})
}

func (r memRefresh) RevokeDevice(ctx context.Context, userID, deviceToken string) (int64, error) {
	return r.deleteWhere("refresh.RevokeDevice", func(t *models.RefreshToken) bool {
		return t.UserID == userID && t.DeviceToken == deviceToken
	})
}

func (r memRefresh) deleteWhere(op string, match func(*models.RefreshToken) bool) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit(op); err != nil {
		return 0, err
	}
	var n int64
	for k, t := range r.s.refresh {
		if match(t) {
			delete(r.s.refresh, k)
			n++
		}
	}
	return n, nil
}

// --- devices ---

type memDevices struct{ s *memStore }

func devKey(userID, token string) string { return userID + "/" + token }

func (r memDevices) AddPending(ctx context.Context, d *models.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("devices.AddPending"); err != nil {
		return err
	}
	k := devKey(d.UserID, d.DeviceToken)
	if _, ok := r.s.devices[k]; !ok {
		c := *d
		r.s.devices[k] = &c
	}
	return nil
}

func (r memDevices) IsApproved(ctx context.Context, userID, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.devices[devKey(userID, token)]
	return ok && d.Approved, r.s.hit("devices.IsApproved")
}

func (r memDevices) List(ctx context.Context, userID string) ([]models.Device, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.Device{}
	for _, d := range r.s.devices {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceToken < out[j].DeviceToken })
	return out, nil
}

func (r memDevices) Approve(ctx context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := devKey(userID, token)
	d, ok := r.s.devices[k]
	if !ok {
		d = &models.Device{UserID: userID, DeviceToken: token}
		r.s.devices[k] = d
	}
	d.Approved = true
	return nil
}

func (r memDevices) Remove(ctx context.Context, userID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.devices, devKey(userID, token))
	return nil
}

func (r memDevices) AddLogin(ctx context.Context, rec *models.LoginRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("devices.AddLogin"); err != nil {
		return err
	}
	r.s.logins = append(r.s.logins, *rec)
	return nil
}

// --- feed ---

type memFeed struct{ s *memStore }

func (r memFeed) sorted() []models.FeedItem {
	out := make([]models.FeedItem, 0, len(r.s.items))
	for _, it := range r.s.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memFeed) List(ctx context.Context, offset, limit int) ([]models.FeedItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted()
	if offset >= len(all) {
		return []models.FeedItem{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r memFeed) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.items)), nil
}

func (r memFeed) Get(ctx context.Context, id string) (*models.FeedItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *it
	return &out, nil
}

func (r memFeed) GetByHash(ctx context.Context, hash string) (*models.FeedItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.items {
		if it.FileHash == hash {
			out := *it
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memFeed) Create(ctx context.Context, item *models.FeedItem) (*models.FeedItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("feed.Create"); err != nil {
		return nil, err
	}
	for _, it := range r.s.items {
		if it.FileHash == item.FileHash {
			return nil, common.ErrDuplicateFile
		}
	}
	c := *item
	c.ID = uuid.NewString()
	r.s.items[c.ID] = &c
	out := c
	return &out, nil
}

func (r memFeed) Update(ctx context.Context, item *models.FeedItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("feed.Update"); err != nil {
		return err
	}
	if _, ok := r.s.items[item.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *item
	r.s.items[item.ID] = &c
	return nil
}

func (r memFeed) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.items, id)
	return nil
}

func (r memFeed) IncrementDownloads(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("feed.IncrementDownloads"); err != nil {
		return err
	}
	it, ok := r.s.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	it.DownloadCount++
	return nil
}

func (r memFeed) Top(ctx context.Context, n int) ([]models.TopItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.sorted()
	sort.SliceStable(all, func(i, j int) bool { return all[i].DownloadCount > all[j].DownloadCount })
	if len(all) > n {
		all = all[:n]
	}
	out := make([]models.TopItem, 0, len(all))
	for _, it := range all {
		out = append(out, models.TopItem{ID: it.ID, Title: it.Title, DownloadCount: it.DownloadCount})
	}
	return out, nil
}

// --- downloads ---

type memDownloads struct{ s *memStore }

func (r memDownloads) CreateGrant(ctx context.Context, g *models.DownloadGrant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("downloads.CreateGrant"); err != nil {
		return err
	}
	c := *g
	r.s.grants[g.JTI] = &c
	return nil
}

func (r memDownloads) GetGrant(ctx context.Context, jti string) (*models.DownloadGrant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.grants[jti]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *g
	return &out, nil
}

func (r memDownloads) Redeem(ctx context.Context, jti string, singleUse bool, at time.Time) (*models.DownloadGrant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("downloads.Redeem"); err != nil {
		return nil, err
	}
	g, ok := r.s.grants[jti]
	if !ok || g.RefundedAt != nil || (singleUse && g.RedeemedAt != nil) {
		return nil, common.ErrInvalidOrExpired
	}
	g.RedeemCount++
	if g.RedeemedAt == nil {
		t := at
		g.RedeemedAt = &t
	}
	out := *g
	return &out, nil
}

func (r memDownloads) ClaimExpired(ctx context.Context, now time.Time, limit int) ([]models.DownloadGrant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("downloads.ClaimExpired"); err != nil {
		return nil, err
	}
	var out []models.DownloadGrant
	for _, g := range r.s.grants {
		if len(out) == limit {
			break
		}
		if g.ExpiresAt.Before(now) && g.RedeemedAt == nil && g.RefundedAt == nil {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r memDownloads) MarkRefunded(ctx context.Context, jti string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.grants[jti]
	if !ok {
		return common.ErrorNotFound
	}
	t := at
	g.RefundedAt = &t
	return nil
}

func (r memDownloads) AppendLog(ctx context.Context, rec *models.DownloadRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("downloads.AppendLog"); err != nil {
		return err
	}
	c := *rec
	c.ID = fmt.Sprint(len(r.s.log) + 1)
	r.s.log = append(r.s.log, c)
	return nil
}

func (r memDownloads) RecentByUser(ctx context.Context, userID string, n int) ([]models.DownloadRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.DownloadRecord{}
	for i := len(r.s.log) - 1; i >= 0 && len(out) < n; i-- {
		if r.s.log[i].UserID == userID {
			out = append(out, r.s.log[i])
		}
	}
	return out, nil
}

func (r memDownloads) CountLog(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.log)), nil
}

// --- payments ---

type memPayments struct{ s *memStore }

func (r memPayments) Create(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("payments.Create"); err != nil {
		return nil, err
	}
	c := *p
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	r.s.payments[c.ID] = &c
	out := c
	return &out, nil
}

func (r memPayments) GetByExternalID(ctx context.Context, provider, externalID string) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.Provider == provider && p.ExternalID == externalID {
			out := *p
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memPayments) MarkCompleted(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("payments.MarkCompleted"); err != nil {
		return false, err
	}
	p, ok := r.s.payments[id]
	if !ok || (p.Status != models.PaymentPending && p.Status != models.PaymentFailed) {
		return false, nil
	}
	p.Status = models.PaymentCompleted
	return true, nil
}

func (r memPayments) MarkFailed(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return common.ErrorNotFound
	}
	if p.Status == models.PaymentPending {
		p.Status = models.PaymentFailed
	}
	return nil
}

func (r memPayments) all(userID string) []models.Payment {
	out := []models.Payment{}
	for _, p := range r.s.payments {
		if userID == "" || p.UserID == userID {
			c := *p
			if u, ok := r.s.users[p.UserID]; ok {
				c.UserName, c.UserEmail = u.Name, u.Email
			}
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memPayments) ListByUser(ctx context.Context, userID string, n int) ([]models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.all(userID)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (r memPayments) ListAll(ctx context.Context) ([]models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.all(""), nil
}

func (r memPayments) Recent(ctx context.Context, n int) ([]models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.all("")
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (r memPayments) RevenueCents(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum int64
	for _, p := range r.s.payments {
		if p.Status == models.PaymentCompleted {
			sum += p.AmountCents
		}
	}
	return sum, nil
}

// --- support ---

type memSupport struct{ s *memStore }

func (r memSupport) copyThread(t *models.SupportThread) *models.SupportThread {
	out := *t
	out.Conversation = append([]models.SupportMessage{}, t.Conversation...)
	return &out
}

func (r memSupport) GetByUser(ctx context.Context, userID string) (*models.SupportThread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.threads {
		if t.UserID == userID {
			return r.copyThread(t), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memSupport) Get(ctx context.Context, id string) (*models.SupportThread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.threads[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.copyThread(t), nil
}

func (r memSupport) Create(ctx context.Context, userID, userName string) (*models.SupportThread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("support.Create"); err != nil {
		return nil, err
	}
	t := &models.SupportThread{ID: uuid.NewString(), UserID: userID, UserName: userName, Status: models.ThreadPending, UpdatedAt: time.Now()}
	r.s.threads[t.ID] = t
	return r.copyThread(t), nil
}

func (r memSupport) AddMessage(ctx context.Context, threadID, sender, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.hit("support.AddMessage"); err != nil {
		return err
	}
	t, ok := r.s.threads[threadID]
	if !ok {
		return common.ErrorNotFound
	}
	t.Conversation = append(t.Conversation, models.SupportMessage{ThreadID: threadID, Sender: sender, Message: message})
	t.UpdatedAt = time.Now()
	return nil
}

func (r memSupport) SetStatus(ctx context.Context, threadID, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.threads[threadID]
	if !ok {
		return common.ErrorNotFound
	}
	t.Status = status
	return nil
}

func (r memSupport) List(ctx context.Context) ([]models.SupportThread, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.SupportThread{}
	for _, t := range r.s.threads {
		out = append(out, *r.copyThread(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
