package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notify receives progress updates in percent with a human readable message
type Notify func(percent int, message string)

func (n Notify) send(percent int, message string) {
	if n != nil {
		n(percent, message)
	}
}

// HTTPError is a non-2xx response from a printer API
type HTTPError struct {
	Vendor     string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Vendor, e.StatusCode, body)
}

// UploadResult is the outcome of a firmware upload
type UploadResult struct {
	Vendor  string
	Started bool
	Body    json.RawMessage
}

// Client talks to OctoPrint, Moonraker and PrusaLink
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// DefaultTimeout bounds uploads and connection tests
const DefaultTimeout = 5 * time.Minute

// NewClient creates a client; a nil httpClient gets DefaultTimeout
func NewClient(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: httpClient, logger: logger.With(zap.String("component", "printer_client"))}
}

func (c *Client) vendor(p *Profile) (Vendor, error) {
	v, ok := vendors[p.Type]
	if !ok {
		return Vendor{}, fmt.Errorf("%s is not a network printer", p.Type)
	}
	return v, nil
}

func endpoint(p *Profile, path string) string {
	return strings.TrimRight(p.APIURL, "/") + path
}

func (c *Client) do(req *http.Request, v Vendor, p *Profile) ([]byte, error) {
	if p.APIKey != "" || !v.OptionalKey {
		req.Header.Set(apiKeyHeader, p.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", v.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s response: %w", v.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Vendor: v.Name, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Upload sends the payload as a multipart form and starts the print when the profile asks for it
func (c *Client) Upload(ctx context.Context, p *Profile, filename string, payload []byte, notify Notify) (*UploadResult, error) {
	v, err := c.vendor(p)
	if err != nil {
		return nil, err
	}

	notify.send(20, fmt.Sprintf("Connecting to %s...", v.Name))

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, err
	}
	if v.UploadFields != nil {
		if err := v.UploadFields(mw, p); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	notify.send(40, fmt.Sprintf("Uploading to %s...", v.Name))
	body := &progressReader{r: bytes.NewReader(form.Bytes()), total: int64(form.Len()), notify: notify, from: 40, to: 80}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(p, v.UploadPath), body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(form.Len())
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req, v, p)
	if err != nil {
		return nil, fmt.Errorf("%s upload failed: %w", v.Name, err)
	}
	notify.send(80, "Processing response...")

	result := &UploadResult{Vendor: v.Name, Started: p.AutoStart && v.StartPath == ""}
	if json.Valid(resp) {
		result.Body = resp
	}

	if p.AutoStart && v.StartPath != "" {
		path := filename
		if v.UploadedPath != nil {
			if uploaded := v.UploadedPath(resp); uploaded != "" {
				path = uploaded
			}
		}
		notify.send(90, "Starting print...")
		if err := c.start(ctx, v, p, path); err != nil {
			return nil, err
		}
		result.Started = true
	}

	c.logger.Info("uploaded model",
		zap.String("vendor", v.Name),
		zap.String("file", filename),
		zap.Int("bytes", len(payload)),
		zap.Bool("started", result.Started))
	return result, nil
}

func (c *Client) start(ctx context.Context, v Vendor, p *Profile, path string) error {
	data, err := json.Marshal(map[string]string{"filename": path})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(p, v.StartPath), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if _, err := c.do(req, v, p); err != nil {
		return fmt.Errorf("%s print start failed: %w", v.Name, err)
	}
	return nil
}

// Test fetches the version endpoint and returns a connection message
func (c *Client) Test(ctx context.Context, p *Profile) (string, error) {
	v, err := c.vendor(p)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(p, v.VersionPath), nil)
	if err != nil {
		return "", err
	}
	body, err := c.do(req, v, p)
	if err != nil {
		return "", fmt.Errorf("connection failed: %w", err)
	}

	version := ""
	if v.VersionText != nil {
		version = v.VersionText(body)
	}
	if version == "" {
		version = "unknown version"
	}
	name := v.Name
	if p.Type == ConnectionKlipper {
		name = "Moonraker"
	}
	return fmt.Sprintf("Connected to %s %s", name, version), nil
}

// progressReader reports read progress scaled into the [from, to] percent range
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	notify   Notify
	from, to int
	last     int
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 && p.notify != nil {
		pct := p.from + int(int64(p.to-p.from)*p.read/p.total)
		if pct != p.last {
			p.last = pct
			p.notify(pct, fmt.Sprintf("Uploaded %d of %d bytes", p.read, p.total))
		}
	}
	return n, err
}
