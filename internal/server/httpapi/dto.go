package httpapi

import (
	"time"

	"github.com/dmitrijs2005/feedvault/internal/server/models"
	"github.com/dmitrijs2005/feedvault/internal/server/services"
	"github.com/dmitrijs2005/feedvault/internal/sizex"
)

type messageResponse struct {
	Message string `json:"message"`
}

type userDTO struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Role                 string     `json:"role"`
	Country              string     `json:"country,omitempty"`
	DeviceToken          string     `json:"deviceToken,omitempty"`
	LastLogin            *time.Time `json:"lastLogin,omitempty"`
	DownloadLimitGB      float64    `json:"downloadLimit"`
	TotalPurchasedGB     float64    `json:"totalPurchasedStorage"`
	TotalDownloadedGB    float64    `json:"totalDownloads"`
	DownloadLimitDisplay string     `json:"downloadLimitDisplay"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func toUserDTO(u *models.User) userDTO {
	return userDTO{
		ID:                   u.ID,
		Name:                 u.Name,
		Email:                u.Email,
		Role:                 u.Role,
		Country:              u.Country,
		DeviceToken:          u.DeviceToken,
		LastLogin:            u.LastLogin,
		DownloadLimitGB:      sizex.GB(u.DownloadLimitBytes),
		TotalPurchasedGB:     sizex.GB(u.TotalPurchasedBytes),
		TotalDownloadedGB:    sizex.GB(u.TotalDownloadedBytes),
		DownloadLimitDisplay: sizex.Human(u.DownloadLimitBytes),
		CreatedAt:            u.CreatedAt,
	}
}

type loginResponse struct {
	Message string  `json:"message"`
	Token   string  `json:"token"`
	User    userDTO `json:"user"`
}

type feedItemDTO struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Image         string    `json:"image"`
	StorageKey    string    `json:"storageKey"`
	FileHash      string    `json:"fileHash"`
	Resolution    string    `json:"resolution"`
	Duration      string    `json:"duration"`
	FileType      string    `json:"fileType"`
	FileSize      string    `json:"fileSize"`
	FileSizeBytes int64     `json:"fileSizeBytes"`
	DownloadCount int64     `json:"downloadCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toFeedItemDTO(it *models.FeedItem) feedItemDTO {
	return feedItemDTO{
		ID:            it.ID,
		Title:         it.Title,
		Description:   it.Description,
		Image:         it.ImageKey,
		StorageKey:    it.StorageKey,
		FileHash:      it.FileHash,
		Resolution:    it.Resolution,
		Duration:      it.Duration,
		FileType:      it.FileType,
		FileSize:      sizex.FormatMB(it.FileSizeBytes),
		FileSizeBytes: it.FileSizeBytes,
		DownloadCount: it.DownloadCount,
		CreatedAt:     it.CreatedAt,
	}
}

type feedPageDTO struct {
	Items       []feedItemDTO `json:"items"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
}

func toFeedPageDTO(p *services.FeedPage) feedPageDTO {
	items := make([]feedItemDTO, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, toFeedItemDTO(&p.Items[i]))
	}
	return feedPageDTO{Items: items, TotalPages: p.TotalPages, CurrentPage: p.CurrentPage}
}

type feedItemResponse struct {
	Message string      `json:"message"`
	Item    feedItemDTO `json:"item"`
}

type issueResponse struct {
	DownloadToken     string    `json:"downloadToken"`
	SecureDownloadURL string    `json:"secureDownloadUrl"`
	RemainingQuota    float64   `json:"remainingQuota"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

type verifyResponse struct {
	FileName    string `json:"fileName"`
	FileSize    string `json:"fileSize"`
	DownloadURL string `json:"downloadUrl"`
}

type paymentDTO struct {
	ID        string    `json:"id"`
	PaymentID string    `json:"paymentId"`
	Provider  string    `json:"provider"`
	Plan      string    `json:"plan"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	QuotaGB   float64   `json:"storageGB"`
	Status    string    `json:"status"`
	UserName  string    `json:"userName,omitempty"`
	UserEmail string    `json:"userEmail,omitempty"`
	CreatedAt time.Time `json:"date"`
}

func toPaymentDTO(p *models.Payment) paymentDTO {
	return paymentDTO{
		ID:        p.ID,
		PaymentID: p.ExternalID,
		Provider:  p.Provider,
		Plan:      p.Plan,
		Amount:    services.FormatCents(p.AmountCents),
		Currency:  p.Currency,
		QuotaGB:   sizex.GB(p.QuotaBytes),
		Status:    p.Status,
		UserName:  p.UserName,
		UserEmail: p.UserEmail,
		CreatedAt: p.CreatedAt,
	}
}

func toPaymentDTOs(ps []models.Payment) []paymentDTO {
	out := make([]paymentDTO, 0, len(ps))
	for i := range ps {
		out = append(out, toPaymentDTO(&ps[i]))
	}
	return out
}

type downloadDTO struct {
	FeedItemID string    `json:"fileId"`
	FileSize   string    `json:"fileSize"`
	Date       time.Time `json:"downloadDate"`
}

type profileResponse struct {
	User         userDTO       `json:"user"`
	Transactions []paymentDTO  `json:"transactions"`
	Downloads    []downloadDTO `json:"downloads"`
}

func toProfileResponse(p *services.Profile) profileResponse {
	downloads := make([]downloadDTO, 0, len(p.Downloads))
	for _, d := range p.Downloads {
		downloads = append(downloads, downloadDTO{FeedItemID: d.FeedItemID, FileSize: sizex.FormatMB(d.SizeBytes), Date: d.CreatedAt})
	}
	return profileResponse{User: toUserDTO(p.User), Transactions: toPaymentDTOs(p.Payments), Downloads: downloads}
}

type topItemDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	DownloadCount int64  `json:"downloadCount"`
}

type dashboardResponse struct {
	TotalUsers     int64        `json:"totalUsers"`
	ActiveUsers    int64        `json:"activeUsers"`
	TotalRevenue   string       `json:"totalRevenue"`
	TotalDownloads int64        `json:"totalDownloads"`
	Transactions   []paymentDTO `json:"transactions"`
	TopFeedItems   []topItemDTO `json:"topFeedItems"`
}

func toDashboardResponse(d *services.Dashboard) dashboardResponse {
	top := make([]topItemDTO, 0, len(d.TopItems))
	for _, t := range d.TopItems {
		top = append(top, topItemDTO{ID: t.ID, Title: t.Title, DownloadCount: t.DownloadCount})
	}
	return dashboardResponse{
		TotalUsers:     d.TotalUsers,
		ActiveUsers:    d.ActiveUsers,
		TotalRevenue:   services.FormatCents(d.RevenueCents),
		TotalDownloads: d.TotalDownloads,
		Transactions:   toPaymentDTOs(d.Transactions),
		TopFeedItems:   top,
	}
}

type deviceDTO struct {
	DeviceToken string    `json:"deviceToken"`
	IPAddress   string    `json:"ipAddress"`
	UserAgent   string    `json:"userAgent"`
	Country     string    `json:"country"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"createdAt"`
}

type devicesResponse struct {
	AllowedDevices []deviceDTO `json:"allowedDevices"`
	PendingDevices []deviceDTO `json:"pendingDevices"`
}

func toDevicesResponse(ds []models.Device) devicesResponse {
	out := devicesResponse{AllowedDevices: []deviceDTO{}, PendingDevices: []deviceDTO{}}
	for _, d := range ds {
		dto := deviceDTO{DeviceToken: d.DeviceToken, IPAddress: d.IPAddress, UserAgent: d.UserAgent, Country: d.Country, Approved: d.Approved, CreatedAt: d.CreatedAt}
		if d.Approved {
			out.AllowedDevices = append(out.AllowedDevices, dto)
		} else {
			out.PendingDevices = append(out.PendingDevices, dto)
		}
	}
	return out
}

type supportMessageDTO struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type supportThreadDTO struct {
	ID           string              `json:"id,omitempty"`
	UserID       string              `json:"userId,omitempty"`
	UserName     string              `json:"userName,omitempty"`
	Status       string              `json:"status,omitempty"`
	Conversation []supportMessageDTO `json:"conversation"`
}

func toSupportThreadDTO(t *models.SupportThread) supportThreadDTO {
	conv := make([]supportMessageDTO, 0, len(t.Conversation))
	for _, m := range t.Conversation {
		conv = append(conv, supportMessageDTO{Sender: m.Sender, Message: m.Message, Timestamp: m.CreatedAt})
	}
	return supportThreadDTO{ID: t.ID, UserID: t.UserID, UserName: t.UserName, Status: t.Status, Conversation: conv}
}
