// Package fileupload models a file upload list item: which controls it
// shows for a file and preset, and which events a click or an uploader
// notification produces.
//
// Moving bytes to storage is the uploader's job. This package only reacts
// to the uploader's notifications.
package fileupload

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// File describes an uploaded or uploading file.
type File struct {
	ID         string  `json:"id"`
	Checksum   string  `json:"checksum,omitempty"`
	FileSize   int64   `json:"file_size,omitempty"`
	Error      bool    `json:"error,omitempty"`
	Preset     string  `json:"preset,omitempty"`
	UploadedBy string  `json:"uploaded_by,omitempty"`
	Progress   float64 `json:"progress,omitempty"`
}

// Uploading reports whether the upload has started and not finished.
func (f File) Uploading() bool {
	return f.Progress > 0 && f.Progress < 1
}

// DecodeFile parses an uploader's JSON file descriptor.
func DecodeFile(data []byte) (File, error) {
	var f File
	if err := sonic.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("decode file: %w", err)
	}
	return f, nil
}

// Preset is the format preset a file slot accepts.
type Preset struct {
	ID      string `json:"id"`
	KindID  string `json:"kind_id"`
	Display bool   `json:"display"`
}
