package export

// DefaultFrameRate suits game captures, which are mostly recorded at 60fps.
const DefaultFrameRate = 60.0

// Clip is one EDL event: a source range of a video, in seconds.
type Clip struct {
	Name     string
	MediaURL string
	Start    float64
	End      float64
}

// Request parameterises an export.
type Request struct {
	Title     string  `json:"title" validate:"max=200"`
	FrameRate float64 `json:"frame_rate" validate:"omitempty,gt=0,lte=240"`
}
