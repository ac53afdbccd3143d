package model

import "time"

const (
	BackupStatusPending  = "pending"
	BackupStatusComplete = "complete"
	BackupStatusFailed   = "failed"
)

type Backup struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}
