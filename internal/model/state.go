package model

import "time"

// ItemStatus is the lifecycle state of one logical media item.
type ItemStatus string

const (
	StatusPending     ItemStatus = "pending"
	StatusDownloading ItemStatus = "downloading"
	StatusDownloaded  ItemStatus = "downloaded"
	StatusError       ItemStatus = "error"
)

// Terminal reports whether the status is a final outcome.
func (s ItemStatus) Terminal() bool {
	return s == StatusDownloaded || s == StatusError
}

// DownloadResult describes a successfully persisted download.
type DownloadResult struct {
	FilePath string `json:"filePath"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	Verified bool   `json:"verified"`
}

// ItemState is the tracked state of one logical media item. There is exactly
// one ItemState per LogicalID at any time; it is created on admission and
// mutated only by the worker that currently owns the item.
type ItemState struct {
	ID        string
	Status    ItemStatus
	UpdatedAt time.Time
	Retries   int

	// Result is set when Status is StatusDownloaded.
	Result *DownloadResult

	// Err is the final error message when Status is StatusError.
	Err string
}
