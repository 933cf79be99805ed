package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docvault/internal/config"
	"docvault/internal/storage"
)

var (
	// ErrAnalysisPending is returned while VirusTotal is still analysing.
	ErrAnalysisPending = errors.New("analysis not completed")
	// ErrRateLimited is returned for HTTP 429.
	ErrRateLimited = errors.New("virustotal rate limit exceeded")
)

// VirusTotal scans content with the VirusTotal v3 API. Content is streamed
// from storage straight into the upload body.
type VirusTotal struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	store        storage.Storage
	logger       hclog.Logger
}

var _ Scanner = (*VirusTotal)(nil)

// NewVirusTotal builds a client. An empty API key is rejected; use NewSkip.
func NewVirusTotal(cfg config.ScannerConfig, store storage.Storage, logger hclog.Logger) (*VirusTotal, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("virustotal api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.virustotal.com/api/v3"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &VirusTotal{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store:  store,
		logger: logger.Named("virustotal"),
	}, nil
}

type analysisRef struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type analysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

type analysis struct {
	Data struct {
		Attributes struct {
			Status string        `json:"status"`
			Stats  analysisStats `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// Scan uploads the object at locator and waits for the analysis verdict.
func (v *VirusTotal) Scan(ctx context.Context, locator string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	log := v.logger.With("locator", locator)
	log.Info("scanning file")

	id, err := v.upload(ctx, locator)
	if err != nil {
		log.Error("virustotal upload failed", "error", err)
		return err
	}

	stats, err := v.poll(ctx, id)
	if err != nil {
		log.Error("virustotal analysis failed", "analysis_id", id, "error", err)
		return err
	}

	if stats.Malicious > 0 {
		log.Warn("malicious file detected", "analysis_id", id, "positives", stats.Malicious)
		return &MaliciousError{
			Reason:    fmt.Sprintf("analysis %s", id),
			Positives: stats.Malicious,
		}
	}

	log.Info("file is clean", "analysis_id", id, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (v *VirusTotal) upload(ctx context.Context, locator string) (string, error) {
	rc, _, err := v.store.Get(ctx, locator)
	if err != nil {
		return "", fmt.Errorf("open content: %w", err)
	}
	defer rc.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", path.Base(locator))
		if err == nil {
			_, err = io.Copy(part, rc)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/files", pr)
	if err != nil {
		pr.Close()
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var ref analysisRef
	if err := v.do(req, &ref); err != nil {
		pr.Close()
		return "", fmt.Errorf("upload file: %w", err)
	}
	if ref.Data.ID == "" {
		return "", errors.New("upload file: response carries no analysis id")
	}
	return ref.Data.ID, nil
}

func (v *VirusTotal) poll(ctx context.Context, id string) (analysisStats, error) {
	var stats analysisStats
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/analyses/"+id, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		var a analysis
		if err := v.do(req, &a); err != nil {
			var se *statusError
			if errors.As(err, &se) && !se.retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		if a.Data.Attributes.Status != "completed" {
			return ErrAnalysisPending
		}
		stats = a.Data.Attributes.Stats
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(v.pollInterval), ctx)
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		v.logger.Debug("analysis not ready", "analysis_id", id, "reason", err, "next_poll", d)
	})
	if err != nil {
		if ctx.Err() != nil {
			return stats, fmt.Errorf("poll analysis %s: %w", id, ctx.Err())
		}
		return stats, fmt.Errorf("poll analysis %s: %w", id, err)
	}
	return stats, nil
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("virustotal responded %d: %s", e.Code, e.Body)
}

func (e *statusError) Unwrap() error {
	if e.Code == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return nil
}

func (e *statusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

func (v *VirusTotal) do(req *http.Request, out any) error {
	req.Header.Set("x-apikey", v.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
