package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/dmitrijs2005/feedvault/internal/logging"
	"github.com/dmitrijs2005/feedvault/internal/server/auth"
	"github.com/dmitrijs2005/feedvault/internal/server/config"
	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/services"
)

var (
	alice = &models.User{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: common.RoleUser, DeviceToken: "dev-a"}
	boss  = &models.User{ID: "u-2", Name: "Boss", Email: "boss@example.com", Role: common.RoleAdmin, DeviceToken: "dev-b"}
)

type fakeUsers struct {
	byToken   map[string]*models.User
	byEmail   map[string]*models.User
	portal    string
	loginReq  services.LoginRequest
	loggedOut string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byToken: map[string]*models.User{"tok-alice": alice, "tok-boss": boss},
		byEmail: map[string]*models.User{alice.Email: alice, boss.Email: boss},
	}
}

func (f *fakeUsers) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	return &models.User{ID: "new", Name: name, Email: email, Role: common.RoleUser}, nil
}

func (f *fakeUsers) Login(ctx context.Context, portal string, req services.LoginRequest) (*services.LoginResult, error) {
	f.portal, f.loginReq = portal, req
	u, ok := f.byEmail[req.Email]
	if !ok || req.Password != "pw" {
		return nil, common.ErrInvalidCredentials
	}
	if u.Role != portal {
		return nil, fmt.Errorf("%w: use /%s/login instead", common.ErrWrongPortal, u.Role)
	}
	device := req.DeviceToken
	if device == "" {
		device = "dev-new"
	}
	return &services.LoginResult{TokenPair: services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, User: u, DeviceToken: device}, nil
}

func (f *fakeUsers) RefreshToken(ctx context.Context, rt string) (*services.TokenPair, error) {
	if rt != "ref" {
		return nil, common.ErrRefreshTokenExpired
	}
	return &services.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}, nil
}

func (f *fakeUsers) Logout(ctx context.Context, rt string) error {
	f.loggedOut = rt
	return nil
}

func (f *fakeUsers) Authenticate(ctx context.Context, token, device string) (*models.User, error) {
	u, ok := f.byToken[token]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	if device != "" && device != u.DeviceToken {
		return nil, common.ErrUnauthorizedDevice
	}
	return u, nil
}

func (f *fakeUsers) Me(ctx context.Context, id string) (*models.User, error) {
	for _, u := range f.byToken {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) AccessTokenValidity() time.Duration  { return time.Hour }
func (f *fakeUsers) RefreshTokenValidity() time.Duration { return 24 * time.Hour }

type fakeFeed struct {
	items    map[string]*models.FeedItem
	in       services.FeedInput
	file     string
	hasImage bool
	page     int
	limit    int
}

func (f *fakeFeed) List(ctx context.Context, page, limit int) (*services.FeedPage, error) {
	f.page, f.limit = page, limit
	out := &services.FeedPage{TotalPages: 1, CurrentPage: 1}
	for _, it := range f.items {
		out.Items = append(out.Items, *it)
	}
	return out, nil
}

func (f *fakeFeed) Get(ctx context.Context, id string) (*models.FeedItem, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return it, nil
}

func (f *fakeFeed) Create(ctx context.Context, in services.FeedInput, file, image *services.Upload) (*models.FeedItem, bool, error) {
	if file == nil || image == nil {
		return nil, false, fmt.Errorf("%w: both file and image are required", common.ErrorValidation)
	}
	b, err := io.ReadAll(file.Body)
	if err != nil {
		return nil, false, err
	}
	f.in, f.file, f.hasImage = in, string(b), true
	for _, it := range f.items {
		if it.FileHash == f.file {
			return it, false, nil
		}
	}
	it := &models.FeedItem{ID: "item-new", Title: in.Title, FileHash: f.file, FileSizeBytes: int64(len(b))}
	f.items[it.ID] = it
	return it, true, nil
}

func (f *fakeFeed) Update(ctx context.Context, id string, in services.FeedInput, file, image *services.Upload) (*models.FeedItem, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	f.in = in
	f.hasImage = image != nil
	it.Title = in.Title
	return it, nil
}

func (f *fakeFeed) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeDownloads struct {
	issueErr error
	openErr  error
	readErr  error
	body     string
	issuedTo string
}

func (f *fakeDownloads) Issue(ctx context.Context, userID, itemID string) (*services.IssuedDownload, error) {
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	f.issuedTo = userID
	return &services.IssuedDownload{
		Token:          "dl-" + itemID,
		URL:            "http://files.test/api/feed/secure-download?token=dl-" + itemID,
		ExpiresAt:      time.Unix(1_700_000_300, 0),
		RemainingBytes: 3 << 29,
	}, nil
}

func (f *fakeDownloads) claims(token string) (*auth.DownloadClaims, error) {
	if token != "good" {
		return nil, common.ErrInvalidOrExpired
	}
	return &auth.DownloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1"},
		FileName:         "clip.zip",
		FileSize:         5 << 20,
		UserID:           alice.ID,
	}, nil
}

func (f *fakeDownloads) Verify(ctx context.Context, token string) (*auth.DownloadClaims, error) {
	return f.claims(token)
}

func (f *fakeDownloads) StartURL(token string) string {
	return "http://files.test/api/feed/start-download?token=" + token
}

func (f *fakeDownloads) Open(ctx context.Context, token string) (*services.DownloadStream, error) {
	c, err := f.claims(token)
	if err != nil {
		return nil, err
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	var body io.Reader = strings.NewReader(f.body)
	if f.readErr != nil {
		body = io.MultiReader(body, iotest.ErrReader(f.readErr))
	}
	return &services.DownloadStream{Claims: c, Body: io.NopCloser(body), Size: int64(len(f.body))}, nil
}

type fakePayments struct {
	verifyErr error
}

func (f *fakePayments) CreateCryptoPayment(ctx context.Context, userID, plan string) (string, error) {
	if _, err := services.LookupPlan(plan); err != nil {
		return "", err
	}
	return "https://btcpay/i/1", nil
}

func (f *fakePayments) VerifyCryptoPayment(ctx context.Context, userID, id string) (*models.Payment, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &models.Payment{ID: "p1", ExternalID: id, Status: models.PaymentCompleted, AmountCents: 599, QuotaBytes: 5 << 30}, nil
}

func (f *fakePayments) CreatePayPalOrder(ctx context.Context, userID, plan string) (string, string, error) {
	return "O-1", "https://paypal/approve/O-1", nil
}

func (f *fakePayments) CapturePayPalOrder(ctx context.Context, userID, orderID string) (*models.Payment, error) {
	return nil, common.ErrPaymentPending
}

type fakeSupport struct {
	sent string
}

func (f *fakeSupport) Send(ctx context.Context, u *models.User, msg string) error {
	if strings.TrimSpace(msg) == "" {
		return common.ErrorValidation
	}
	f.sent = u.ID + ":" + msg
	return nil
}

func (f *fakeSupport) Mine(ctx context.Context, userID string) (*models.SupportThread, error) {
	return &models.SupportThread{Conversation: []models.SupportMessage{}}, nil
}

func (f *fakeSupport) List(ctx context.Context) ([]models.SupportThread, error) {
	return []models.SupportThread{}, nil
}

func (f *fakeSupport) Reply(ctx context.Context, id, reply string) error {
	return common.ErrorNotFound
}

type fakeAdmin struct {
	err error
}

func (f *fakeAdmin) Dashboard(ctx context.Context) (*services.Dashboard, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.Dashboard{TotalUsers: 3, RevenueCents: 1598, TopItems: []models.TopItem{{ID: "i", Title: "hot", DownloadCount: 9}}}, nil
}

func (f *fakeAdmin) Devices(ctx context.Context, adminID string) ([]models.Device, error) {
	return []models.Device{{DeviceToken: "a", Approved: true}, {DeviceToken: "p"}}, nil
}

func (f *fakeAdmin) ApproveDevice(ctx context.Context, adminID, token string) error { return nil }
func (f *fakeAdmin) RemoveDevice(ctx context.Context, adminID, token string) error  { return nil }

func (f *fakeAdmin) Payments(ctx context.Context) ([]models.Payment, error) {
	return []models.Payment{}, nil
}

func (f *fakeAdmin) Profile(ctx context.Context, userID string) (*services.Profile, error) {
	return &services.Profile{User: alice, Payments: []models.Payment{}, Downloads: []models.DownloadRecord{{FeedItemID: "i", SizeBytes: 1 << 20}}}, nil
}

type fixture struct {
	srv       *Server
	users     *fakeUsers
	feed      *fakeFeed
	downloads *fakeDownloads
	payments  *fakePayments
	support   *fakeSupport
	admin     *fakeAdmin
	logs      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.CookieDomain = "example.com"

	f := &fixture{
		users:     newFakeUsers(),
		feed:      &fakeFeed{items: map[string]*models.FeedItem{"item-1": {ID: "item-1", Title: "Clip", FileSizeBytes: 1536 << 10, FileHash: "h1"}}},
		downloads: &fakeDownloads{body: "file-bytes"},
		payments:  &fakePayments{},
		support:   &fakeSupport{},
		admin:     &fakeAdmin{},
		logs:      &bytes.Buffer{},
	}
	f.srv = NewServer(cfg, logging.New(f.logs, "text", "error"), Services{
		Users:     f.users,
		Feed:      f.feed,
		Downloads: f.downloads,
		Payments:  f.payments,
		Support:   f.support,
		Admin:     f.admin,
	})
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func jsonReq(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func asUser(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m errorResponse
	decode(t, rec, &m)
	return m.Message
}
