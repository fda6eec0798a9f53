package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/Vovarama1992/speech2face/internal/ports"
	"google.golang.org/genai"
)

var ErrNoCandidates = errors.New("response has no candidates")

// без IMAGE в модальностях модель отвечает только текстом
var responseModalities = []string{"TEXT", "IMAGE"}

type client struct {
	genai *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (ports.PortraitAPI, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}
	return &client{genai: c}, nil
}

func (c *client) UploadAudio(ctx context.Context, path, mimeType string) (*ports.RemoteFile, error) {
	f, err := c.genai.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	return &ports.RemoteFile{Name: f.Name, URI: f.URI, MIMEType: f.MIMEType}, nil
}

func (c *client) GenerateContent(ctx context.Context, req ports.GenerateRequest) ([]ports.ContentPart, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, req.Model, buildContents(req), &genai.GenerateContentConfig{
		ResponseModalities: responseModalities,
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return firstCandidateParts(resp)
}

func (c *client) DeleteFile(ctx context.Context, name string) error {
	if _, err := c.genai.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("delete file %s: %w", name, err)
	}
	return nil
}

func buildContents(req ports.GenerateRequest) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.File != nil {
		parts = append(parts, genai.NewPartFromURI(req.File.URI, req.File.MIMEType))
	}
	return []*genai.Content{{Role: "user", Parts: parts}}
}

func firstCandidateParts(resp *genai.GenerateContentResponse) ([]ports.ContentPart, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, ErrNoCandidates
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil, nil
	}

	out := make([]ports.ContentPart, 0, len(content.Parts))
	for _, p := range content.Parts {
		if p == nil {
			continue
		}
		part := ports.ContentPart{Text: p.Text}
		if p.InlineData != nil {
			part.InlineData = p.InlineData.Data
			part.MIMEType = p.InlineData.MIMEType
		}
		out = append(out, part)
	}
	return out, nil
}
