package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PauloHFS/goth-blog/internal/validator"
	"github.com/google/uuid"
)

// URLPrefix is where uploaded files are served from.
const URLPrefix = "/uploads/"

type Config struct {
	AllowedExt []string
	MaxSize    int64
	Directory  string
}

var ImageConfig = Config{
	AllowedExt: []string{".jpg", ".jpeg", ".png", ".webp", ".gif"},
	MaxSize:    5 * 1024 * 1024, // 5MB
	Directory:  "images",
}

type Result struct {
	Path         string
	Filename     string
	OriginalName string
	Size         int64
	MIMEType     string
	URL          string
}

type UploadError struct {
	Code    string
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func IsUploadError(err error) bool {
	var uploadErr *UploadError
	return errors.As(err, &uploadErr)
}

// SaveFile stores the multipart file fieldName under root/cfg.Directory. The
// content type is sniffed from the bytes, the client header is ignored.
func SaveFile(r *http.Request, fieldName, root string, cfg Config) (*Result, error) {
	file, header, err := r.FormFile(fieldName)
	if err != nil {
		return nil, &UploadError{Code: "NO_FILE", Message: "Nenhum arquivo enviado"}
	}
	defer file.Close()

	if header.Size > cfg.MaxSize {
		return nil, &UploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("Arquivo excede o limite de %dMB", max(cfg.MaxSize/1024/1024, 1)),
		}
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !isAllowedExt(ext, cfg.AllowedExt) {
		return nil, &UploadError{
			Code:    "INVALID_EXTENSION",
			Message: fmt.Sprintf("Extensão não permitida: %s", ext),
		}
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, &UploadError{Code: "READ_ERROR", Message: "Falha ao ler arquivo"}
	}
	contentType := http.DetectContentType(sniff[:n])
	if err := validator.ValidateUpload(header.Filename, contentType); err != nil {
		return nil, &UploadError{Code: "INVALID_TYPE", Message: err.Error()}
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, &UploadError{Code: "READ_ERROR", Message: "Falha ao ler arquivo"}
	}

	dir := filepath.Join(root, cfg.Directory)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &UploadError{
			Code:    "DIRECTORY_ERROR",
			Message: "Falha ao criar diretório de upload",
		}
	}

	filename := generateFilename(ext)
	dstPath := filepath.Join(dir, filename)

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, &UploadError{
			Code:    "CREATE_ERROR",
			Message: "Falha ao criar arquivo",
		}
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(file, cfg.MaxSize+1))
	if err != nil || written > cfg.MaxSize {
		os.Remove(dstPath)
		if err == nil {
			return nil, &UploadError{Code: "FILE_TOO_LARGE", Message: "Arquivo excede o limite permitido"}
		}
		return nil, &UploadError{
			Code:    "WRITE_ERROR",
			Message: "Falha ao salvar arquivo",
		}
	}

	return &Result{
		Path:         dstPath,
		Filename:     filename,
		OriginalName: validator.SanitizeFilename(header.Filename),
		Size:         written,
		MIMEType:     contentType,
		URL:          URLPrefix + path.Join(cfg.Directory, filename),
	}, nil
}

// ResolvePath maps a public upload URL back to its location under root.
// URLs outside URLPrefix or escaping root are rejected.
func ResolvePath(root, url string) (string, bool) {
	rel, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || rel == "" {
		return "", false
	}
	clean := path.Clean("/" + rel)
	if clean == "/" || clean != "/"+rel {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), true
}

// ForOwner scopes cfg to userID's own directory.
func (c Config) ForOwner(userID int64) Config {
	c.Directory = path.Join(c.Directory, strconv.FormatInt(userID, 10))
	return c
}

// OwnedBy reports whether url names an image uploaded by userID.
func OwnedBy(url string, userID int64) bool {
	if _, ok := ResolvePath("", url); !ok {
		return false
	}
	name, ok := strings.CutPrefix(url, URLPrefix+ImageConfig.ForOwner(userID).Directory+"/")
	return ok && name != "" && !strings.Contains(name, "/")
}

func isAllowedExt(ext string, allowed []string) bool {
	return slices.Contains(allowed, ext)
}

func generateFilename(ext string) string {
	timestamp := time.Now().Unix()
	unique := uuid.New().String()[:8]
	return fmt.Sprintf("%d_%s%s", timestamp, unique, ext)
}

func DeleteFile(path string) error {
	return os.Remove(path)
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
