package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const listPageSize = 1000

// FileDescriptor describes one file discovered in the external folder tree
type FileDescriptor struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

// Folder describes one folder in the external tree
type Folder struct {
	ID   string
	Name string
}

// Provider is the folder-tree provider contract consumed by the discoverer,
// the import workers and the folder-picker handler
type Provider interface {
	// ListImages returns one page of image-mime-typed children of a folder
	ListImages(ctx context.Context, userID uint, folderID, pageToken string) ([]FileDescriptor, string, error)
	// ListSubfolders returns the immediate sub-folders of a folder
	ListSubfolders(ctx context.Context, userID uint, folderID string) ([]Folder, error)
	// ListFolders returns browsable folders under a parent ("" for the root)
	ListFolders(ctx context.Context, userID uint, parentID string) ([]Folder, error)
	// Download fetches the raw bytes of a file
	Download(ctx context.Context, userID uint, fileID string) ([]byte, error)
}

// Client talks to a Google Drive style files API using per-user tokens
// obtained from the TokenBroker.
type Client struct {
	baseURL    string
	broker     *TokenBroker
	httpClient *http.Client
}

// NewClient creates a provider client against the given API base URL
func NewClient(baseURL string, broker *TokenBroker) *Client {
	return &Client{
		baseURL:    baseURL,
		broker:     broker,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type listResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Files         []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		MimeType string `json:"mimeType"`
		Size     string `json:"size"` // the API reports sizes as strings
	} `json:"files"`
}

func (c *Client) get(ctx context.Context, userID uint, rawURL string) (*http.Response, error) {
	token, err := c.broker.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

func (c *Client) list(ctx context.Context, userID uint, query, fields, pageToken string) (*listResponse, error) {
	params := url.Values{
		"q":        {query},
		"fields":   {fields},
		"pageSize": {strconv.Itoa(listPageSize)},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	resp, err := c.get(ctx, userID, c.baseURL+"/files?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("failed to decode provider list response: %w", err)
	}
	return &lr, nil
}

// ListImages returns one page of image children of a folder
func (c *Client) ListImages(ctx context.Context, userID uint, folderID, pageToken string) ([]FileDescriptor, string, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false and (mimeType contains 'image/')", folderID)
	lr, err := c.list(ctx, userID, query, "nextPageToken, files(id, name, mimeType, size)", pageToken)
	if err != nil {
		return nil, "", err
	}

	files := make([]FileDescriptor, 0, len(lr.Files))
	for _, f := range lr.Files {
		size, _ := strconv.ParseInt(f.Size, 10, 64)
		files = append(files, FileDescriptor{ID: f.ID, Name: f.Name, MimeType: f.MimeType, Size: size})
	}
	return files, lr.NextPageToken, nil
}

// ListSubfolders returns the immediate sub-folders of a folder
func (c *Client) ListSubfolders(ctx context.Context, userID uint, folderID string) ([]Folder, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false", folderID)
	lr, err := c.list(ctx, userID, query, "files(id, name)", "")
	if err != nil {
		return nil, err
	}

	folders := make([]Folder, 0, len(lr.Files))
	for _, f := range lr.Files {
		folders = append(folders, Folder{ID: f.ID, Name: f.Name})
	}
	return folders, nil
}

// ListFolders returns browsable folders under a parent; an empty parent
// lists the user's root folders
func (c *Client) ListFolders(ctx context.Context, userID uint, parentID string) ([]Folder, error) {
	if parentID == "" {
		parentID = "root"
	}
	return c.ListSubfolders(ctx, userID, parentID)
}

// Download fetches the raw bytes of a file
func (c *Client) Download(ctx context.Context, userID uint, fileID string) ([]byte, error) {
	resp, err := c.get(ctx, userID, fmt.Sprintf("%s/files/%s?alt=media", c.baseURL, url.PathEscape(fileID)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s from provider: %w", fileID, err)
	}
	return data, nil
}
