package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/despensa-next/internal/config"

	"github.com/google/uuid"
)

const evidenceSniffSize = 512

// EvidenceUpload 采购凭证（照片/小票）
type EvidenceUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// EvidenceStore 凭证存储，Save 成功返回持久引用
type EvidenceStore interface {
	Save(ctx context.Context, upload EvidenceUpload) (string, error)
	Delete(ctx context.Context, ref string) error
}

// LocalEvidenceStore 本地磁盘凭证存储
type LocalEvidenceStore struct {
	cfg config.EvidenceConfig
	now func() time.Time
}

// NewLocalEvidenceStore 创建本地凭证存储
func NewLocalEvidenceStore(cfg config.EvidenceConfig) *LocalEvidenceStore {
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = filepath.Join("uploads", "evidence")
	}
	if strings.TrimSpace(cfg.PublicPrefix) == "" {
		cfg.PublicPrefix = "/uploads/evidence"
	}
	cfg.PublicPrefix = "/" + strings.Trim(strings.TrimSpace(cfg.PublicPrefix), "/")
	return &LocalEvidenceStore{cfg: cfg, now: time.Now}
}

// Save 校验并保存凭证，路径为 <dir>/YYYY/MM/<uuid><ext>
func (s *LocalEvidenceStore) Save(ctx context.Context, upload EvidenceUpload) (string, error) {
	if upload.Content == nil {
		return "", fmt.Errorf("%w: empty content", ErrEvidenceInvalid)
	}
	if upload.Size <= 0 {
		return "", fmt.Errorf("%w: empty file", ErrEvidenceInvalid)
	}
	if s.cfg.MaxSize > 0 && upload.Size > s.cfg.MaxSize {
		return "", fmt.Errorf("%w: file exceeds %d MB", ErrEvidenceInvalid, s.cfg.MaxSize/1024/1024)
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if len(s.cfg.AllowedExtensions) > 0 {
		if ext == "" || !isAllowedExtension(ext, s.cfg.AllowedExtensions) {
			return "", fmt.Errorf("%w: extension %q not allowed", ErrEvidenceInvalid, ext)
		}
	}

	// 读取文件头部识别 MIME 类型
	header := make([]byte, evidenceSniffSize)
	n, err := io.ReadFull(upload.Content, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	header = header[:n]
	contentType := http.DetectContentType(header)
	if len(s.cfg.AllowedTypes) > 0 && !isAllowedContentType(contentType, s.cfg.AllowedTypes) {
		return "", fmt.Errorf("%w: content type %q not allowed", ErrEvidenceInvalid, contentType)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := s.now()
	year := now.Format("2006")
	month := now.Format("01")
	filename := uuid.NewString() + ext
	savePath := filepath.Join(s.cfg.Dir, year, month, filename)
	if err := os.MkdirAll(filepath.Dir(savePath), 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(savePath)
	if err != nil {
		return "", err
	}
	src := io.MultiReader(bytes.NewReader(header), upload.Content)
	limit := upload.Size + 1
	if s.cfg.MaxSize > 0 {
		limit = s.cfg.MaxSize + 1
	}
	written, copyErr := io.Copy(dst, &contextReader{ctx: ctx, r: io.LimitReader(src, limit)})
	closeErr := dst.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && s.cfg.MaxSize > 0 && written > s.cfg.MaxSize {
		copyErr = fmt.Errorf("%w: file exceeds %d MB", ErrEvidenceInvalid, s.cfg.MaxSize/1024/1024)
	}
	if copyErr != nil {
		_ = os.Remove(savePath)
		return "", copyErr
	}

	return strings.Join([]string{s.cfg.PublicPrefix, year, month, filename}, "/"), nil
}

// Delete 删除凭证，引用不存在时视为成功
func (s *LocalEvidenceStore) Delete(_ context.Context, ref string) error {
	path, err := s.resolvePath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// resolvePath 将引用映射回存储路径，拒绝越界路径
func (s *LocalEvidenceStore) resolvePath(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, s.cfg.PublicPrefix+"/") {
		return "", fmt.Errorf("%w: unknown reference %q", ErrEvidenceInvalid, ref)
	}
	rel := strings.TrimPrefix(trimmed, s.cfg.PublicPrefix+"/")
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: unknown reference %q", ErrEvidenceInvalid, ref)
	}
	return filepath.Join(s.cfg.Dir, clean), nil
}

func isAllowedExtension(ext string, allowed []string) bool {
	for _, allowedExt := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(allowedExt))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if strings.EqualFold(ext, normalized) {
			return true
		}
	}
	return false
}

func isAllowedContentType(contentType string, allowed []string) bool {
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, t := range allowed {
		if strings.EqualFold(mediaType, strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
