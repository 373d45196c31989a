package models

import "time"

// FeedItem is an admin-curated catalog entry pointing at a stored file and
// its thumbnail.
type FeedItem struct {
	ID            string
	Title         string
	Description   string
	ImageKey      string
	StorageKey    string
	FileHash      string
	Resolution    string
	Duration      string
	FileType      string
	FileSizeBytes int64
	DownloadCount int64
	CreatedAt     time.Time
}

// TopItem is a feed item ranked by download count.
type TopItem struct {
	ID            string
	Title         string
	DownloadCount int64
}
