package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// DefaultFolder is the Cloudinary folder product images are uploaded into.
const DefaultFolder = "use-and-sell/products"

// Cloudinary uploads files through the Cloudinary REST API using signed
// requests. The signature covers all upload parameters in alphabetical order
// followed by the API secret, hashed with SHA-1.
type Cloudinary struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string

	Client *http.Client
	now    func() time.Time
}

func NewCloudinary(cloudName, apiKey, apiSecret string) *Cloudinary {
	return &Cloudinary{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    DefaultFolder,
		Client:    &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

func (c *Cloudinary) UploadAll(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := c.upload(ctx, fh)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Signature computes the upload signature for the given timestamp. Exposed so
// clients doing direct signed uploads can request one.
func (c *Cloudinary) Signature(timestamp int64) string {
	toSign := fmt.Sprintf("folder=%s&timestamp=%d%s", c.Folder, timestamp, c.APISecret)
	sum := sha1.Sum([]byte(toSign))
	return hex.EncodeToString(sum[:])
}

func (c *Cloudinary) upload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("cloudinary: open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	ts := c.now().Unix()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		part, err := mw.CreateFormFile("file", fh.Filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		_ = mw.WriteField("api_key", c.APIKey)
		_ = mw.WriteField("timestamp", strconv.FormatInt(ts, 10))
		_ = mw.WriteField("folder", c.Folder)
		_ = mw.WriteField("signature", c.Signature(ts))
		pw.CloseWithError(mw.Close())
	}()

	endpoint := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/auto/upload", c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return "", fmt.Errorf("cloudinary: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload %q: %w", fh.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("cloudinary: upload %q: status %d: %s", fh.Filename, resp.StatusCode, body)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("cloudinary: decode response: %w", err)
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary: upload %q: no url returned", fh.Filename)
	}
	return result.SecureURL, nil
}
