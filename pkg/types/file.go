package types

import "time"

// FileNode is a single node in a workspace tree listing.
type FileNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	IsDir    bool        `json:"isDir"`
	Size     int64       `json:"size,omitempty"`
	Modified *time.Time  `json:"modified,omitempty"`
	Approved bool        `json:"approved"`
	Children []*FileNode `json:"children,omitempty"`
}

// FileReadResult is the outcome of a gated file read.
type FileReadResult struct {
	Path     string    `json:"path"`
	Content  string    `json:"content"`
	Size     int64     `json:"size"`
	Encoding string    `json:"encoding"`
	Modified time.Time `json:"modified"`
	// Language is a detection hint derived from the file extension.
	Language string `json:"language,omitempty"`
}

// FileWriteRequest asks the bridge to write content to a file.
type FileWriteRequest struct {
	Path            string `json:"path"`
	Content         string `json:"content"`
	CreateIfMissing bool   `json:"createIfMissing,omitempty"`
	// Backup copies the existing file to <name>.bak before overwriting.
	Backup bool `json:"backup,omitempty"`
}

// FileWriteResult is the outcome of a gated file write.
type FileWriteResult struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytesWritten"`
	BackupPath   string `json:"backupPath,omitempty"`
}
