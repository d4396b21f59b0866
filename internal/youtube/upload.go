package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"airdate/internal/logging"
	"airdate/internal/media"
	"airdate/internal/services"
)

type snippetBody struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId"`
}

type statusBody struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

type videoResource struct {
	ID string `json:"id"`
}

// Upload pushes the source file through the resumable upload protocol and
// returns the remote video ID. Each HTTP step is retried within the
// configured budget. An auth rejection mid-transfer triggers exactly one
// forced credential refresh followed by a restart of the whole transfer;
// a partially uploaded session is never resumed across credential changes.
func (c *Client) Upload(ctx context.Context, src *media.Source, meta Metadata, progress Progress) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	videoID, err := c.transfer(ctx, token, src, meta, progress)
	if errors.Is(err, services.ErrAuthExpired) {
		token, err = c.tokens.ForceRefresh(ctx, token)
		if err != nil {
			return "", err
		}
		c.logger.Info("restarting transfer with refreshed credential",
			logging.String("title", meta.Title))
		videoID, err = c.transfer(ctx, token, src, meta, progress)
	}
	if err != nil {
		return "", err
	}
	c.logger.Info("upload complete",
		logging.String("title", meta.Title),
		logging.String("video_id", videoID))
	return videoID, nil
}

// transfer performs one complete session attempt with a fixed bearer token.
func (c *Client) transfer(ctx context.Context, token string, src *media.Source, meta Metadata, progress Progress) (string, error) {
	session, err := c.startSession(ctx, token, src, meta)
	if err != nil {
		return "", err
	}
	c.logger.Info("upload session started",
		logging.String("title", meta.Title),
		logging.Int64("bytes", src.Size))

	file, err := os.Open(src.Path)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, component, "upload",
			fmt.Sprintf("open media file %s", src.Path), err)
	}
	defer file.Close()

	return c.uploadChunks(ctx, session, token, file, src, progress)
}

// startSession initiates a resumable session and returns its URI.
func (c *Client) startSession(ctx context.Context, token string, src *media.Source, meta Metadata) (string, error) {
	categoryID := meta.CategoryID
	if categoryID == "" {
		categoryID = c.categoryID
	}
	privacy := meta.Privacy
	if privacy == "" {
		privacy = "private"
	}
	body, err := json.Marshal(map[string]any{
		"snippet": snippetBody{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryID:  categoryID,
		},
		"status": statusBody{PrivacyStatus: privacy},
	})
	if err != nil {
		return "", fmt.Errorf("encode upload metadata: %w", err)
	}

	var sessionURI string
	err = c.withRetries(ctx, "start session", func() (int, error) {
		url := c.uploadURL + "?uploadType=resumable&part=snippet,status"
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if reqErr != nil {
			return 0, reqErr
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
		req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(src.Size, 10))
		req.Header.Set("X-Upload-Content-Type", src.MIMEType)

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return 0, doErr
		}
		defer drainBody(resp)

		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, statusError(resp)
		}
		sessionURI = resp.Header.Get("Location")
		if sessionURI == "" {
			return resp.StatusCode, fmt.Errorf("upload endpoint returned no session location")
		}
		return resp.StatusCode, nil
	})
	if err != nil {
		return "", err
	}
	return sessionURI, nil
}

func (c *Client) uploadChunks(ctx context.Context, session, token string, file *os.File, src *media.Source, progress Progress) (string, error) {
	total := src.Size
	offset := int64(0)
	chunk := make([]byte, c.chunkSize)
	var videoID string

	for offset < total {
		n, err := readChunkAt(file, chunk, offset, total)
		if err != nil {
			return "", fmt.Errorf("read media chunk at %d: %w", offset, err)
		}

		var (
			nextOffset int64
			done       bool
		)
		err = c.withRetries(ctx, "upload chunk", func() (int, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodPut, session, bytes.NewReader(chunk[:n]))
			if reqErr != nil {
				return 0, reqErr
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", src.MIMEType)
			req.Header.Set("Content-Length", strconv.Itoa(n))
			req.Header.Set("Content-Range",
				fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(n)-1, total))

			resp, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return 0, doErr
			}
			defer drainBody(resp)

			switch resp.StatusCode {
			case http.StatusOK, http.StatusCreated:
				var resource videoResource
				if decodeErr := json.NewDecoder(resp.Body).Decode(&resource); decodeErr != nil {
					return resp.StatusCode, fmt.Errorf("decode upload response: %w", decodeErr)
				}
				if resource.ID == "" {
					return resp.StatusCode, fmt.Errorf("upload response missing video id")
				}
				videoID = resource.ID
				nextOffset = total
				done = true
				return resp.StatusCode, nil
			case resumeIncomplete:
				nextOffset = committedOffset(resp.Header.Get("Range"), offset+int64(n))
				return resp.StatusCode, nil
			default:
				return resp.StatusCode, statusError(resp)
			}
		})
		if err != nil {
			return "", err
		}

		offset = nextOffset
		if progress != nil {
			progress(offset, total)
		}
		if done {
			return videoID, nil
		}
	}

	return "", services.Wrap(services.ErrTransient, component, "upload",
		"session ended without a final video resource", nil)
}

// resumeIncomplete is the non-standard 308 the upload endpoint uses to
// acknowledge a chunk and request the next one.
const resumeIncomplete = 308

// committedOffset parses a "bytes=0-12345" Range response header. The server
// may have committed fewer bytes than were sent; the next chunk resumes from
// its answer, not ours.
func committedOffset(rangeHeader string, fallback int64) int64 {
	value, ok := strings.CutPrefix(rangeHeader, "bytes=0-")
	if !ok {
		return fallback
	}
	last, err := strconv.ParseInt(value, 10, 64)
	if err != nil || last < 0 {
		return fallback
	}
	return last + 1
}

func readChunkAt(file *os.File, buf []byte, offset, total int64) (int, error) {
	want := int64(len(buf))
	if remaining := total - offset; remaining < want {
		want = remaining
	}
	n, err := file.ReadAt(buf[:want], offset)
	if err == io.EOF && int64(n) == want {
		err = nil
	}
	return n, err
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = resp.Status
	}
	return fmt.Errorf("upload endpoint returned %d: %s", resp.StatusCode, detail)
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
