package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

// RestoreSummary is the data of POST /admin/restore.
type RestoreSummary struct {
	Version   int `json:"version"`
	Feeds     int `json:"feeds"`
	Customers int `json:"customers"`
	Invoices  int `json:"invoices"`
	Payments  int `json:"payments"`
	Expenses  int `json:"expenses"`
}

// AdminAPI wraps /admin backup and restore.
type AdminAPI struct{ c *Client }

// Admin returns the backup/restore facade.
func (c *Client) Admin() AdminAPI { return AdminAPI{c} }

// Backup streams the snapshot into w and returns the server-suggested file name.
func (a AdminAPI) Backup(ctx context.Context, w io.Writer) (string, error) {
	req, err := a.c.newRequest(ctx, http.MethodGet, "/admin/backup", nil, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.c.send(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download backup: %w", err)
	}
	name := "backup.json"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, nil
}

// Restore uploads a snapshot read from r. The backend replaces all data.
func (a AdminAPI) Restore(ctx context.Context, filename string, r io.Reader) (RestoreSummary, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return RestoreSummary{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return RestoreSummary{}, err
	}
	if err := writer.Close(); err != nil {
		return RestoreSummary{}, err
	}

	req, err := a.c.newRequest(ctx, http.MethodPost, "/admin/restore", nil, body)
	if err != nil {
		return RestoreSummary{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := a.c.send(req)
	if err != nil {
		return RestoreSummary{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var out RestoreSummary
	if err := decodeEnvelope(resp.Body, &out); err != nil {
		return RestoreSummary{}, fmt.Errorf("decode restore: %w", err)
	}
	return out, nil
}

// ScheduleBackup asks the worker for a snapshot in BACKUP_DIR and returns the task id.
func (a AdminAPI) ScheduleBackup(ctx context.Context) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
	}
	err := a.c.do(ctx, http.MethodPost, "/admin/backup/schedule", nil, nil, &out)
	return out.TaskID, err
}
