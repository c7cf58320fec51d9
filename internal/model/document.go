package model

// UserDocument tracks one uploaded file per user. Filename is unique per
// user; re-uploading the same filename overwrites the metadata.
type UserDocument struct {
	User     string `json:"user"`
	Filename string `json:"filename"`
	FileType string `json:"file_type"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}
