package llm

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

// FineTuneJob mirrors the service's fine-tuning job object.
type FineTuneJob struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FineTunedModel string `json:"fine_tuned_model"`
	Error          struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Terminal reports whether the job has finished (in either direction).
func (j FineTuneJob) Terminal() bool {
	switch j.Status {
	case "succeeded", "failed", "cancelled":
		return true
	}
	return false
}

// UploadFile uploads training data (JSONL) with purpose "fine-tune"
// and returns the file ID.
func (c *Client) UploadFile(ctx context.Context, filename string, data io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("purpose", "fine-tune"); err != nil {
		return "", fmt.Errorf("writing purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("copying file data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	return result.ID, nil
}

// CreateFineTune starts a fine-tuning job on the uploaded file.
func (c *Client) CreateFineTune(ctx context.Context, fileID, baseModel string) (FineTuneJob, error) {
	body, err := json.Marshal(map[string]string{
		"training_file": fileID,
		"model":         baseModel,
	})
	if err != nil {
		return FineTuneJob{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/fine_tuning/jobs", bytes.NewReader(body))
	if err != nil {
		return FineTuneJob{}, fmt.Errorf("creating job request: %w", err)
	}
	c.setHeaders(req)

	return c.decodeJob(req)
}

// GetFineTune fetches the current state of a fine-tuning job.
func (c *Client) GetFineTune(ctx context.Context, jobID string) (FineTuneJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/fine_tuning/jobs/"+jobID, nil)
	if err != nil {
		return FineTuneJob{}, fmt.Errorf("creating job request: %w", err)
	}
	c.setHeaders(req)

	return c.decodeJob(req)
}

// WaitFineTune polls the job until it reaches a terminal status or
// ctx is cancelled. onPoll, if non-nil, receives each observed state.
func (c *Client) WaitFineTune(ctx context.Context, jobID string, interval time.Duration, onPoll func(FineTuneJob)) (FineTuneJob, error) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	for {
		job, err := c.GetFineTune(ctx, jobID)
		if err != nil {
			return FineTuneJob{}, err
		}
		if onPoll != nil {
			onPoll(job)
		}
		if job.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return FineTuneJob{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Client) decodeJob(req *http.Request) (FineTuneJob, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FineTuneJob{}, fmt.Errorf("fine-tune request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return FineTuneJob{}, fmt.Errorf("fine-tune: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var job FineTuneJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return FineTuneJob{}, fmt.Errorf("decoding job: %w", err)
	}
	return job, nil
}
