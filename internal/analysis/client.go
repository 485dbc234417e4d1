package analysis

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"go.uber.org/zap"
)

// Client is the model API surface the analyzer needs.
type Client interface {
	CreateVisionMessage(ctx context.Context, req VisionRequest) (*VisionResponse, error)
}

// VisionRequest carries one photo plus its prompt.
type VisionRequest struct {
	Model          string
	MaxTokens      int64
	Prompt         string
	ImageMediaType string
	ImageBase64    string
}

// VisionResponse is the flattened text reply.
type VisionResponse struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates an Anthropic-backed vision client.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateVisionMessage(ctx context.Context, req VisionRequest) (*VisionResponse, error) {
	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(req.ImageMediaType, req.ImageBase64),
				sdk.NewTextBlock(req.Prompt),
			),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	zap.L().Debug("model usage",
		zap.String("model", string(msg.Model)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	return &VisionResponse{
		Text:         text,
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}
