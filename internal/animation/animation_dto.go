package animation

// UploadInput is the decoded multipart "animation" field. Handlers enforce
// the transport limits; the service revalidates content.
type UploadInput struct {
	FileName string
	Size     int64
	Content  []byte
}

type UploadResponse struct {
	AnimationURL  string `json:"animation_url"`
	AnimationPath string `json:"animation_path"`
	UploadedAt    string `json:"uploaded_at"`
	FileSize      int64  `json:"file_size"`
}

type AnimationResponse struct {
	HasCustomAnimation bool    `json:"has_custom_animation"`
	AnimationURL       *string `json:"animation_url"`
	AnimationPath      *string `json:"animation_path"`
	UploadedAt         *string `json:"uploaded_at"`
}

// LottieInfo mirrors the fields of interest in a Lottie document header.
type LottieInfo struct {
	Version    any     `json:"version"`
	Width      any     `json:"width"`
	Height     any     `json:"height"`
	Frames     any     `json:"frames"`
	FrameRate  any     `json:"frame_rate"`
	Name       string  `json:"name"`
	FileSize   int64   `json:"file_size"`
	FileSizeMB float64 `json:"file_size_mb"`
}

type EmployeeAnimation struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AnimationURL string `json:"animation_url"`
	UploadedAt   string `json:"uploaded_at"`
}

type ListResponse struct {
	Total     int                 `json:"total"`
	Employees []EmployeeAnimation `json:"employees"`
}
