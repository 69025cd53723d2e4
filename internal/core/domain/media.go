package domain

type TextOutput struct {
	Text string `json:"text"`
}

type ImageOutput struct {
	URL string `json:"url"`
}

type Transcription struct {
	Text string `json:"text"`
}

// ImageDescription is a description of an uploaded image that can be used as
// a generation prompt. Target is empty for a general description.
type ImageDescription struct {
	Target      RefineTarget `json:"target,omitempty"`
	Description string       `json:"description"`
}
