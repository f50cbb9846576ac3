package models

// ImageRequest is the POST /ocr body
type ImageRequest struct {
	Image string `json:"image"`
}

// RecognitionResult is returned on successful recognition
type RecognitionResult struct {
	Result string `json:"result"`
}

// ErrorResponse carries a human-readable failure detail
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RootStatus is the GET / liveness payload
type RootStatus struct {
	Message string `json:"message"`
}

// OCRStatus is the GET /ocr liveness payload
type OCRStatus struct {
	Status string `json:"status"`
}
