package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// UploadFile uploads a file as multipart form data. The content is buffered
// so transport retries can re-send it; callers uploading very large files
// should bound the reader themselves.
func (c *Client) UploadFile(ctx context.Context, name, contentType string, content io.Reader) (*FileResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to buffer file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	out := &FileResponse{}
	err = c.doRaw(ctx, http.MethodPost, "/files", nil, buf.Bytes(), writer.FormDataContentType(), out)
	return out, err
}

func (c *Client) GetFile(ctx context.Context, id string) (*FileResponse, error) {
	out := &FileResponse{}
	err := c.do(ctx, http.MethodGet, "/files/"+id, nil, nil, out)
	return out, err
}

func (c *Client) ListFiles(ctx context.Context) (*FilesResponse, error) {
	out := &FilesResponse{}
	err := c.do(ctx, http.MethodGet, "/files", nil, nil, out)
	return out, err
}

func (c *Client) DeleteFile(ctx context.Context, id string) (*DeleteResponse, error) {
	out := &DeleteResponse{}
	err := c.do(ctx, http.MethodDelete, "/files/"+id, nil, nil, out)
	return out, err
}
