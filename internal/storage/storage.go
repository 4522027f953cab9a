package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupportedMedia = errors.New("only image and video files can be stored")
	ErrInvalidDataURI   = errors.New("invalid data URI")
)

// Storage keeps uploaded media and returns the URL screens load it from.
type Storage interface {
	Save(ctx context.Context, filename string, body io.ReadSeeker) (string, error)
}

type LocalStorage struct {
	uploadDir string
	publicURL string
}

type SpacesStorage struct {
	client s3iface.S3API
	bucket string
	cdnURL string
}

// NewLocalStorage stores files under uploadDir, served at publicURL.
func NewLocalStorage(uploadDir, publicURL string) *LocalStorage {
	return &LocalStorage{uploadDir: uploadDir, publicURL: strings.TrimSuffix(publicURL, "/")}
}

func NewSpacesStorage(endpoint, region, bucket, cdnURL, accessKey, secretKey string) (*SpacesStorage, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return newSpacesStorage(s3.New(sess), bucket, cdnURL), nil
}

func newSpacesStorage(client s3iface.S3API, bucket, cdnURL string) *SpacesStorage {
	return &SpacesStorage{client: client, bucket: bucket, cdnURL: strings.TrimSuffix(cdnURL, "/")}
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// normalizeFilename keeps the extension and a cleaned base name, and adds a
// short random suffix so two uploads never collide.
func normalizeFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = strings.ReplaceAll(base, " ", "_")
	base = unsafeChars.ReplaceAllString(base, "")
	if base == "" {
		base = "file"
	}
	if len(base) > 64 {
		base = base[:64]
	}
	return fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
}

func (ls *LocalStorage) Save(ctx context.Context, filename string, body io.ReadSeeker) (string, error) {
	if ContentType(filename) == "" {
		return "", ErrUnsupportedMedia
	}
	name := normalizeFilename(filename)
	log.Debug().Str("original", filename).Str("normalized", name).Msg("[storage] upload normalized")

	if err := os.MkdirAll(ls.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	dst, err := os.Create(filepath.Join(ls.uploadDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, body); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return ls.publicURL + "/" + url.PathEscape(name), nil
}

func (ss *SpacesStorage) Save(ctx context.Context, filename string, body io.ReadSeeker) (string, error) {
	contentType := ContentType(filename)
	if contentType == "" {
		return "", ErrUnsupportedMedia
	}
	name := normalizeFilename(filename)
	key := "uploads/" + name

	_, err := ss.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("[storage] failed to upload file to Spaces")
		return "", fmt.Errorf("failed to upload to Spaces: %w", err)
	}
	return ss.cdnURL + "/" + key, nil
}

// SaveFile stores a multipart upload.
func SaveFile(ctx context.Context, s Storage, fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()
	return s.Save(ctx, fileHeader.Filename, src)
}

// SaveDataURI decodes a base64 data URI (as pasted by the editor) and stores
// it under a name derived from its media type.
func SaveDataURI(ctx context.Context, s Storage, name, dataURI string) (string, error) {
	mediaType, data, err := DecodeDataURI(dataURI)
	if err != nil {
		return "", err
	}
	ext := extensionFor(mediaType)
	if ext == "" {
		return "", ErrUnsupportedMedia
	}
	if name == "" {
		name = "pasted"
	}
	return s.Save(ctx, name+ext, bytes.NewReader(data))
}

// DecodeDataURI supports the base64 form only: data:<type>;base64,<payload>.
func DecodeDataURI(dataURI string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 || mediaType == "" {
		return "", nil, fmt.Errorf("%w: expected a base64 payload with a media type", ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return strings.ToLower(mediaType), data, nil
}

var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// ContentType returns the media type for a stored file, or "" when the
// extension is not an image or video a screen can show.
func ContentType(filename string) string {
	return mediaTypes[strings.ToLower(filepath.Ext(filename))]
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/quicktime":
		return ".mov"
	}
	return ""
}

func IsDataURI(s string) bool { return strings.HasPrefix(s, "data:") }
