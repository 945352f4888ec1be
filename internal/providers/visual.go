package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/winnerqin/jimeng4-image-generator/internal/types"
)

// Request key and model version for the Jimeng 4.0 text-to-image endpoint.
const (
	reqKey       = "jimeng_t2i_v40"
	modelVersion = "v1"

	// successCode is the provider's "ok" status in the response envelope.
	successCode = 10000
)

// Signing parameters for the visual API. The endpoint authenticates with an
// HMAC-SHA256 request signature scoped to date, region, and service.
const (
	signAlgorithm = "HMAC-SHA256"
	signService   = "cv"
	signRegion    = "cn-north-1"
	signDateFmt   = "20060102T150405Z"

	apiAction        = "CVProcess"
	apiActionVersion = "2022-08-31"
)

// VisualClient calls a Jimeng-style visual generation API over HTTP.
type VisualClient struct {
	baseURL    string
	accessKey  string
	secretKey  string
	httpClient *http.Client
}

// NewVisualClient creates a client for the given endpoint. timeout bounds
// each generation call so a hung provider fails the task instead of wedging
// the batch worker.
func NewVisualClient(baseURL, accessKey, secretKey string, timeout time.Duration) *VisualClient {
	return &VisualClient{
		baseURL:   baseURL,
		accessKey: accessKey,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type visualRequest struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Steps          int      `json:"steps"`
	Seed           int64    `json:"seed"`
	ModelVersion   string   `json:"model_version"`
	ReqKey         string   `json:"req_key"`
	NumImages      int      `json:"num_images"`
	N              int      `json:"n"`
	ImageCount     int      `json:"image_count"`
	ImageURLs      []string `json:"image_urls,omitempty"`
}

type visualResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		BinaryDataBase64 []string `json:"binary_data_base64"`
	} `json:"data"`
}

// GenerateImage submits one generation request and returns the decoded image
// bytes. Any non-success outcome is an ExternalServiceError.
func (c *VisualClient) GenerateImage(ctx context.Context, params GenerateParams) ([]byte, error) {
	if c.accessKey == "" || c.secretKey == "" {
		return nil, &types.ExternalServiceError{
			Service: "visual-api",
			Err:     errors.New("VOLCENGINE_AK and VOLCENGINE_SK are not configured"),
		}
	}

	body := visualRequest{
		Prompt:         params.Prompt,
		NegativePrompt: params.NegativePrompt,
		Width:          params.Width,
		Height:         params.Height,
		Steps:          params.Steps,
		Seed:           params.Seed,
		ModelVersion:   modelVersion,
		ReqKey:         reqKey,
		NumImages:      1,
		N:              1,
		ImageCount:     1,
		ImageURLs:      params.ImageURLs,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	query := url.Values{
		"Action":  {apiAction},
		"Version": {apiActionVersion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"?"+query.Encode(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, payload)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.ExternalServiceError{Service: "visual-api", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ExternalServiceError{Service: "visual-api", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &types.ExternalServiceError{
			Service: "visual-api",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 256)),
		}
	}

	var vr visualResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return nil, &types.ExternalServiceError{
			Service: "visual-api",
			Err:     fmt.Errorf("decode response: %w", err),
		}
	}

	if vr.Code != successCode {
		return nil, &types.ExternalServiceError{
			Service: "visual-api",
			Err:     fmt.Errorf("code %d: %s", vr.Code, vr.Message),
		}
	}
	if len(vr.Data.BinaryDataBase64) == 0 {
		return nil, &types.ExternalServiceError{
			Service: "visual-api",
			Err:     errors.New("response contained no image data"),
		}
	}

	img, err := base64.StdEncoding.DecodeString(vr.Data.BinaryDataBase64[0])
	if err != nil {
		return nil, &types.ExternalServiceError{
			Service: "visual-api",
			Err:     fmt.Errorf("decode image data: %w", err),
		}
	}
	return img, nil
}

// sign authenticates the request with the provider's HMAC-SHA256 scheme.
// The secret key never travels; only the derived signature does.
func (c *VisualClient) sign(req *http.Request, payload []byte) {
	date := time.Now().UTC().Format(signDateFmt)
	shortDate := date[:8]
	payloadHash := sha256Hex(payload)

	req.Header.Set("X-Date", date)
	req.Header.Set("X-Content-Sha256", payloadHash)

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	canonicalHeaders := fmt.Sprintf("content-type:%s\nhost:%s\nx-content-sha256:%s\nx-date:%s\n",
		req.Header.Get("Content-Type"), host, payloadHash, date)
	signedHeaders := "content-type;host;x-content-sha256;x-date"

	path := req.URL.Path
	if path == "" {
		path = "/"
	}
	canonicalRequest := strings.Join([]string{
		req.Method,
		path,
		req.URL.RawQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{shortDate, signRegion, signService, "request"}, "/")
	stringToSign := strings.Join([]string{
		signAlgorithm,
		date,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	key := hmacSHA256([]byte(c.secretKey), shortDate)
	key = hmacSHA256(key, signRegion)
	key = hmacSHA256(key, signService)
	key = hmacSHA256(key, "request")
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		signAlgorithm, c.accessKey, scope, signedHeaders, signature))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
