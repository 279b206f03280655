package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/vapor-share-api/pkg/config"
)

const defaultResourceType = "raw"

// CloudinaryStore uploads blobs through the Cloudinary REST API. Object IDs have the form
// <resource_type>:<public_id> because destroy is addressed per resource type.
type CloudinaryStore struct {
	cfg    config.CloudinaryConfig
	client *http.Client
	now    func() time.Time
}

// NewCloudinaryStore returns a Cloudinary-backed BlobStore.
func NewCloudinaryStore(cfg config.CloudinaryConfig, client *http.Client) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are incomplete")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com"
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &CloudinaryStore{cfg: cfg, client: client, now: time.Now}, nil
}

// Provider implements BlobStore.
func (s *CloudinaryStore) Provider() string { return config.BlobProviderCloudinary }

type cloudinaryUploadResult struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceType string `json:"resource_type"`
	Bytes        int64  `json:"bytes"`
}

type cloudinaryDestroyResult struct {
	Result string `json:"result"`
}

type cloudinaryErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Put uploads the blob with the key as public_id.
func (s *CloudinaryStore) Put(ctx context.Context, in PutInput) (Object, error) {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	params := map[string]string{
		"public_id": in.Key,
		"timestamp": timestamp,
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return Object{}, fmt.Errorf("write upload field: %w", err)
		}
	}
	if err := writer.WriteField("api_key", s.cfg.APIKey); err != nil {
		return Object{}, fmt.Errorf("write upload field: %w", err)
	}
	if err := writer.WriteField("signature", SignParams(params, s.cfg.APISecret)); err != nil {
		return Object{}, fmt.Errorf("write upload field: %w", err)
	}
	part, err := writer.CreateFormFile("file", in.Filename)
	if err != nil {
		return Object{}, fmt.Errorf("create upload part: %w", err)
	}
	if _, err := io.Copy(part, in.Body); err != nil {
		return Object{}, fmt.Errorf("copy upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Object{}, fmt.Errorf("close upload body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/auto/upload", s.cfg.BaseURL, url.PathEscape(s.cfg.CloudName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Object{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result cloudinaryUploadResult
	if err := s.do(req, &result); err != nil {
		return Object{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.PublicID == "" || result.SecureURL == "" {
		return Object{}, fmt.Errorf("cloudinary upload: incomplete response")
	}

	resourceType := result.ResourceType
	if resourceType == "" {
		resourceType = defaultResourceType
	}
	return Object{ID: resourceType + ":" + result.PublicID, URL: result.SecureURL}, nil
}

// Delete destroys the blob. Cloudinary reports "not found" for absent objects, which is
// treated as success.
func (s *CloudinaryStore) Delete(ctx context.Context, objectID string) error {
	resourceType, publicID := splitObjectID(objectID)
	if publicID == "" {
		return fmt.Errorf("cloudinary destroy: empty public id")
	}

	params := map[string]string{
		"public_id":  publicID,
		"invalidate": "true",
		"timestamp":  strconv.FormatInt(s.now().Unix(), 10),
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", s.cfg.APIKey)
	form.Set("signature", SignParams(params, s.cfg.APISecret))

	endpoint := fmt.Sprintf("%s/v1_1/%s/%s/destroy", s.cfg.BaseURL, url.PathEscape(s.cfg.CloudName), resourceType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result cloudinaryDestroyResult
	if err := s.do(req, &result); err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", publicID, err)
	}
	switch result.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("cloudinary destroy %s: unexpected result %q", publicID, result.Result)
	}
}

func (s *CloudinaryStore) do(req *http.Request, out interface{}) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr cloudinaryErrorBody
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// splitObjectID separates the resource type prefix. References without one predate the
// prefix and were uploaded as images.
func splitObjectID(objectID string) (resourceType, publicID string) {
	if idx := strings.Index(objectID, ":"); idx > 0 {
		switch prefix := objectID[:idx]; prefix {
		case "image", "video", "raw":
			return prefix, objectID[idx+1:]
		}
	}
	return "image", objectID
}
