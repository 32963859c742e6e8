package ocr

import "context"

// VisionQuerier is satisfied by *llm.Client.
type VisionQuerier interface {
	QueryVision(ctx context.Context, imageData []byte) (string, error)
}

// VisionEngine transcribes snapshots with a remote vision model.
type VisionEngine struct {
	Client VisionQuerier
}

func (e VisionEngine) Recognize(ctx context.Context, imageData []byte) (string, error) {
	return e.Client.QueryVision(ctx, imageData)
}
