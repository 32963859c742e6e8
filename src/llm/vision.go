package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const visionPrompt = "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
	"- No formatting\n" +
	"- No XML/HTML tags\n" +
	"- No markdown\n" +
	"- No explanations\n" +
	"- Preserve line breaks accurately from the visual layout.\n" +
	"If no text found, return 'NO_TEXT_FOUND'"

const noTextMarker = "NO_TEXT_FOUND"

type VisionMessage struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type VisionRequest struct {
	Model       string          `json:"model"`
	Messages    []VisionMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

// QueryVision asks the vision model to transcribe a PNG. An image without
// text yields "" and no error.
func (c *Client) QueryVision(ctx context.Context, imageData []byte) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	if c.cfg.VisionModel == "" {
		return "", fmt.Errorf("vision model is required")
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageData)
	request := VisionRequest{
		Model: c.cfg.VisionModel,
		Messages: []VisionMessage{
			{
				Role: "user",
				Content: []Content{
					{Type: "text", Text: visionPrompt},
					{Type: "image_url", ImageURL: &ImageURL{URL: imageURL}},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
	}

	status, body, err := c.post(ctx, request)
	if err != nil {
		return "", err
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		if status < 200 || status > 299 {
			return "", &StatusError{Code: status, Body: string(body)}
		}
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}
	if status < 200 || status > 299 {
		return "", &StatusError{Code: status, Body: string(body)}
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	text := cleanExtractedText(response.Choices[0].Message.Content)
	if strings.TrimSpace(text) == noTextMarker {
		return "", nil
	}
	return text, nil
}

func cleanExtractedText(text string) string {
	return strings.TrimSuffix(text, "</image>")
}
