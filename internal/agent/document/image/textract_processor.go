package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/feichai0017/paper-extractor/pkg/logger"
)

// TextractAPI is the subset of the Textract client the recognizer calls.
type TextractAPI interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// TextractProcessor recognises page images with AWS Textract.
type TextractProcessor struct {
	client TextractAPI
	logger logger.Logger
	config *TextractConfig
}

type TextractConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	// MinConfidence drops LINE blocks below this score (0-100).
	MinConfidence float32
}

func NewTextractProcessor(ctx context.Context, cfg *TextractConfig, log logger.Logger) (*TextractProcessor, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return NewTextractProcessorWithClient(textract.NewFromConfig(awsCfg), cfg, log), nil
}

func NewTextractProcessorWithClient(client TextractAPI, cfg *TextractConfig, log logger.Logger) *TextractProcessor {
	if log == nil {
		log = logger.NewNop()
	}
	return &TextractProcessor{client: client, logger: log.Named("textract"), config: cfg}
}

// Recognize implements document.Recognizer.
func (p *TextractProcessor) Recognize(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("input image is nil")
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	out, err := p.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: buf.Bytes()},
	})
	if err != nil {
		return "", fmt.Errorf("failed to detect document text: %w", err)
	}

	lines := p.processBlocks(out.Blocks)
	p.logger.Debug("Textract finished",
		logger.Int("blocks", len(out.Blocks)),
		logger.Int("lines", len(lines)),
	)
	return strings.Join(lines, "\n"), nil
}

// processBlocks keeps LINE blocks at or above the confidence floor, in order.
func (p *TextractProcessor) processBlocks(blocks []types.Block) []string {
	var texts []string
	for _, block := range blocks {
		if block.BlockType != types.BlockTypeLine || block.Text == nil {
			continue
		}
		if aws.ToFloat32(block.Confidence) < p.config.MinConfidence {
			continue
		}
		texts = append(texts, *block.Text)
	}
	return texts
}
