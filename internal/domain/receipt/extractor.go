package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ErrExtraction wraps any OCR or PDF engine failure. Extraction failures
// abort parsing for the request but nothing else.
var ErrExtraction = errors.New("text extraction failed")

// TextExtractor turns an uploaded receipt document into raw text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, contentType string) (string, error)
}

// ocrPrompt asks the vision model for a faithful transcription. Structure
// recovery happens downstream in the parser, so the prompt forbids
// summarizing or reformatting.
const ocrPrompt = `Transcribe all text visible in this receipt image, line by line, exactly as printed.
Preserve the original line order. Output the raw text only, with no commentary, no markdown and no formatting changes.`

// GeminiExtractor performs OCR on receipt images through the Gemini vision
// API.
type GeminiExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiExtractor{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Extract normalizes the upload to PNG and asks the vision model for a
// transcription.
func (g *GeminiExtractor) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	pngData, err := normalizeToPNG(data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(ocrPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response from model", ErrExtraction)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return strings.TrimSpace(text.String()), nil
}

func (g *GeminiExtractor) Close() error {
	return g.client.Close()
}

// PDFTextExtractor pulls the embedded text layer out of a PDF. Scanned
// PDFs without a text layer come back empty, which the caller treats as a
// cue to OCR instead.
type PDFTextExtractor struct{}

func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

func (p *PDFTextExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("%w: opening pdf: %v", ErrExtraction, err)
	}
	defer doc.Close()

	var text strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		pageText, err := doc.Text(page)
		if err != nil {
			return "", fmt.Errorf("%w: reading pdf page %d: %v", ErrExtraction, page, err)
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return strings.TrimSpace(text.String()), nil
}

// CompositeExtractor routes PDFs to the text-layer extractor first and
// falls back to OCR when the PDF has no embedded text. Images always go to
// OCR.
type CompositeExtractor struct {
	pdf TextExtractor
	ocr TextExtractor
}

func NewCompositeExtractor(pdf, ocr TextExtractor) *CompositeExtractor {
	return &CompositeExtractor{pdf: pdf, ocr: ocr}
}

func (c *CompositeExtractor) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(contentType), "application/pdf") {
		text, err := c.pdf.Extract(ctx, data, contentType)
		if err == nil && text != "" {
			return text, nil
		}
	}
	return c.ocr.Extract(ctx, data, contentType)
}
