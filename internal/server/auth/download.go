package auth

import (
	"slices"
	"time"

	"github.com/dmitrijs2005/feedvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DownloadClaims is the payload of a download capability token. The token id
// (RegisteredClaims.ID) keys the matching download grant.
type DownloadClaims struct {
	jwt.RegisteredClaims
	FilePath   string `json:"filePath"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	UserID     string `json:"userId"`
	FeedItemID string `json:"feedItemId"`
}

// DownloadSigner mints and checks download tokens with a shared HS256 key.
type DownloadSigner struct {
	secret []byte
	now    func() time.Time
}

func NewDownloadSigner(secret []byte) *DownloadSigner {
	return &DownloadSigner{secret: secret, now: time.Now}
}

// WithClock returns a copy of s that reads time from now.
func (s *DownloadSigner) WithClock(now func() time.Time) *DownloadSigner {
	return &DownloadSigner{secret: s.secret, now: now}
}

// Sign fills in the expiry and returns the signed token string.
func (s *DownloadSigner) Sign(c DownloadClaims, ttl time.Duration) (string, time.Time, error) {
	issued := s.now()
	expires := issued.Add(ttl)
	c.Audience = jwt.ClaimStrings{audienceDownload}
	c.IssuedAt = jwt.NewNumericDate(issued)
	c.ExpiresAt = jwt.NewNumericDate(expires)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	str, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return str, c.ExpiresAt.Time, nil
}

// Verify checks signature, audience and expiry. A token is valid up to and including
// its expiry second. Every failure is common.ErrInvalidOrExpired.
func (s *DownloadSigner) Verify(tokenString string) (*DownloadClaims, error) {
	claims := &DownloadClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, common.ErrInvalidOrExpired
	}

	if claims.ExpiresAt == nil || claims.ID == "" || !slices.Contains(claims.Audience, audienceDownload) {
		return nil, common.ErrInvalidOrExpired
	}
	if s.now().After(claims.ExpiresAt.Time) {
		return nil, common.ErrInvalidOrExpired
	}

	return claims, nil
}
