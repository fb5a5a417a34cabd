package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Face is one descriptor returned by the scoring service
type Face struct {
	FaceID     int       `json:"face_id"`
	Embedding  []float32 `json:"embedding"`
	BBox       []float64 `json:"bbox"`
	Confidence float32   `json:"confidence"`
}

// Scorer is the face-scoring service contract. An image with no detectable
// faces yields an empty slice and a nil error; only transport and
// server-side failures are errors.
type Scorer interface {
	ScoreURL(ctx context.Context, imageURL string) ([]Face, error)
	ScoreBytes(ctx context.Context, data []byte, filename string) ([]Face, error)
}

// Client talks to the embedding service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scoring client against the given service URL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type facesResponse struct {
	Faces []Face `json:"faces"`
}

func (c *Client) decode(resp *http.Response) ([]Face, error) {
	defer resp.Body.Close()

	// the service signals "no faces" with a 404, which is a valid
	// zero-result outcome rather than an error
	if resp.StatusCode == http.StatusNotFound {
		return []Face{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var fr facesResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	return fr.Faces, nil
}

// ScoreURL scores an image the service can fetch itself via a readable URL
func (c *Client) ScoreURL(ctx context.Context, imageURL string) ([]Face, error) {
	payload, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/extract-embedding-from-url", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	return c.decode(resp)
}

// ScoreBytes scores raw image bytes via multipart upload
func (c *Client) ScoreBytes(ctx context.Context, data []byte, filename string) ([]Face, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/extract-embedding", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	return c.decode(resp)
}
