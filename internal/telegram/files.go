package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/set-night/chatbot/internal/config"
)

// MaxDocumentSize caps uploaded documents accepted for indexing.
const MaxDocumentSize = 2 << 20

var ErrFileTooLarge = errors.New("file too large")

// DownloadFile downloads a file from Telegram by file ID. Files larger than
// MaxDocumentSize are rejected.
func DownloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, string, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}
	if file.FileSize > MaxDocumentSize {
		return nil, "", fmt.Errorf("%w: %d bytes", ErrFileTooLarge, file.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}

	client := &http.Client{Timeout: config.FetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read file data: %w", err)
	}
	if len(data) > MaxDocumentSize {
		return nil, "", ErrFileTooLarge
	}

	return data, file.FilePath, nil
}
