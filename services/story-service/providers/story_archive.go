package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"go.uber.org/zap"
)

// DefaultStoryEndpoint is the remote story persistence endpoint.
const DefaultStoryEndpoint = "https://api.rmtechsolution.com/saveStory.php"

var ErrStoryRejected = errors.New("story endpoint rejected the submission")

// MediaOpener streams the object behind an attachment.
type MediaOpener interface {
	Open(ctx context.Context, att models.Attachment) (io.ReadCloser, error)
}

// StorySubmission is a paid story ready to be persisted. Amount and Discount are in rupees.
type StorySubmission struct {
	Form      models.FormState
	Payment   models.PaymentResult
	Amount    int64
	Discount  int64
	PromoCode string
}

// StoryArchive persists paid stories and returns the id they are stored under.
type StoryArchive interface {
	Save(ctx context.Context, sub StorySubmission) (string, error)
}

// RemoteStoryArchive posts stories as multipart forms to the persistence endpoint.
type RemoteStoryArchive struct {
	endpoint   string
	httpClient *http.Client
	opener     MediaOpener
	logger     *zap.Logger
}

func NewRemoteStoryArchive(endpoint string, timeout time.Duration, opener MediaOpener, logger *zap.Logger) *RemoteStoryArchive {
	if endpoint == "" {
		endpoint = DefaultStoryEndpoint
	}
	return &RemoteStoryArchive{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		opener: opener,
		logger: logger,
	}
}

type saveStoryResponse struct {
	Success bool            `json:"success"`
	StoryID json.RawMessage `json:"storyId"`
	Message string          `json:"message"`
}

// Save streams the submission to the endpoint. Media is read from the opener
// while the request body is being sent, so large stories are never buffered.
func (a *RemoteStoryArchive) Save(ctx context.Context, sub StorySubmission) (string, error) {
	pr, pw := io.Pipe()
	defer pr.Close()
	writer := multipart.NewWriter(pw)

	go func() {
		err := a.writeForm(ctx, writer, sub)
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, pr)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("story endpoint error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	var out saveStoryResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("%w: %s", ErrStoryRejected, out.Message)
	}

	storyID := parseStoryID(out.StoryID)
	if storyID == "" {
		return "", fmt.Errorf("%w: response has no storyId", ErrStoryRejected)
	}

	a.logger.Info("Story saved",
		zap.String("story_id", storyID),
		zap.String("order_id", sub.Payment.OrderID),
	)
	return storyID, nil
}

func (a *RemoteStoryArchive) writeForm(ctx context.Context, w *multipart.Writer, sub StorySubmission) error {
	promises, err := json.Marshal(sub.Form.Promises)
	if err != nil {
		return err
	}
	journeys, err := json.Marshal(sub.Form.Journeys)
	if err != nil {
		return err
	}

	fields := [][2]string{
		{"fromName", sub.Form.FromName},
		{"toName", sub.Form.ToName},
		{"loveLetter", sub.Form.LoveLetter},
		{"firstMetYear", sub.Form.FirstMetYear},
		{"email", sub.Form.Email},
		{"phone", sub.Form.Phone},
		{"paymentStatus", "paid"},
		{"promises", string(promises)},
		{"journeys", string(journeys)},
		{"amount", strconv.FormatInt(sub.Amount, 10)},
		{"discount", strconv.FormatInt(sub.Discount, 10)},
		{"promoCode", sub.PromoCode},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	for _, att := range sub.Form.BannerImages {
		if err := a.writeFile(ctx, w, "bannerImages[]", att); err != nil {
			return err
		}
	}
	for _, att := range sub.Form.GalleryImages {
		if err := a.writeFile(ctx, w, "galleryImages[]", att); err != nil {
			return err
		}
	}
	if sub.Form.Audio != nil {
		if err := a.writeFile(ctx, w, "audio", *sub.Form.Audio); err != nil {
			return err
		}
	}

	payment := [][2]string{
		{"razorpayPaymentId", sub.Payment.PaymentID},
		{"razorpayOrderId", sub.Payment.OrderID},
		{"razorpaySignature", sub.Payment.Signature},
	}
	for _, f := range payment {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	return nil
}

func (a *RemoteStoryArchive) writeFile(ctx context.Context, w *multipart.Writer, field string, att models.Attachment) error {
	src, err := a.opener.Open(ctx, att)
	if err != nil {
		return fmt.Errorf("open %s: %w", att.Key, err)
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", multipart.FileContentDisposition(field, att.Filename))
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

// parseStoryID accepts the id as a JSON string or number.
func parseStoryID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// BuildShareLink returns the public link of a saved story.
func BuildShareLink(host, storyID, fromName string) string {
	return fmt.Sprintf("https://%s/?id=%s&from=%s",
		host,
		url.QueryEscape(storyID),
		componentUnescaper.Replace(url.QueryEscape(fromName)),
	)
}
