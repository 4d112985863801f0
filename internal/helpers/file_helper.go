package helpers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"
)

var ErrInvalidUpload = errors.New("invalid upload")

type UploadConfig struct {
	MaxSizeBytes     int64
	AllowedMimeTypes []string
}

var DefaultScanUploadConfig = UploadConfig{
	MaxSizeBytes: 2 * 1024 * 1024, // 2MB
	AllowedMimeTypes: []string{
		"image/jpeg",
		"image/png",
		"image/gif",
	},
}

// ReadUploadedImage reads a scanned ticket image into memory after checking
// its size and sniffed content type.
func ReadUploadedImage(fileHeader *multipart.FileHeader, configs ...UploadConfig) ([]byte, error) {
	config := DefaultScanUploadConfig
	if len(configs) > 0 {
		config = configs[0]
	}

	if fileHeader.Size > config.MaxSizeBytes {
		return nil, fmt.Errorf("%w: file size exceeds maximum limit of %d KB", ErrInvalidUpload, config.MaxSizeBytes/1024)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, config.MaxSizeBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > config.MaxSizeBytes {
		return nil, fmt.Errorf("%w: file size exceeds maximum limit of %d KB", ErrInvalidUpload, config.MaxSizeBytes/1024)
	}

	mimeType := http.DetectContentType(data)
	if !slices.Contains(config.AllowedMimeTypes, mimeType) {
		return nil, fmt.Errorf("%w: invalid file type %s. Allowed types: %v", ErrInvalidUpload, mimeType, config.AllowedMimeTypes)
	}

	return data, nil
}
