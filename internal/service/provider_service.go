package service

import (
	"context"
	"strings"

	"github.com/despensa-next/internal/models"
	"github.com/despensa-next/internal/repository"
)

// ProviderInput 供应商引用：ID 优先，否则按名称查找或快速新建
type ProviderInput struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	TaxID    string `json:"tax_id"`
	Contact  string `json:"contact"`
	Category string `json:"category"`
}

// IsEmpty 是否未提供任何供应商信息
func (in ProviderInput) IsEmpty() bool {
	return in.ID == 0 && strings.TrimSpace(in.Name) == ""
}

// ProviderService 供应商目录服务
type ProviderService struct {
	repo repository.ProviderRepository
}

// NewProviderService 创建供应商服务
func NewProviderService(repo repository.ProviderRepository) *ProviderService {
	return &ProviderService{repo: repo}
}

// Resolve 查找或创建供应商
func (s *ProviderService) Resolve(ctx context.Context, input ProviderInput) (*models.Provider, bool, error) {
	return resolveProvider(ctx, s.repo, input)
}

// List 供应商列表
func (s *ProviderService) List(ctx context.Context, filter repository.ProviderListFilter) ([]models.Provider, int64, error) {
	return s.repo.List(ctx, filter)
}

// GetByID 获取供应商
func (s *ProviderService) GetByID(ctx context.Context, id uint) (*models.Provider, error) {
	provider, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}

// resolveProvider 返回供应商及是否新建；并发快速新建同名供应商时回读已有记录
func resolveProvider(ctx context.Context, repo repository.ProviderRepository, input ProviderInput) (*models.Provider, bool, error) {
	if input.ID != 0 {
		provider, err := repo.GetByID(ctx, input.ID)
		if err != nil {
			return nil, false, err
		}
		if provider == nil {
			return nil, false, ErrProviderNotFound
		}
		return provider, false, nil
	}

	name := strings.Join(strings.Fields(input.Name), " ")
	if name == "" {
		return nil, false, ErrProviderInvalid
	}
	key := providerNameKey(name)
	existing, err := repo.GetByNameKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	provider := &models.Provider{
		Name:     name,
		NameKey:  key,
		Location: strings.TrimSpace(input.Location),
		TaxID:    strings.TrimSpace(input.TaxID),
		Contact:  strings.TrimSpace(input.Contact),
		Category: strings.TrimSpace(input.Category),
	}
	created, err := repo.CreateIfAbsent(ctx, provider)
	if err != nil {
		return nil, false, err
	}
	if !created {
		existing, err := repo.GetByNameKey(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, ErrProviderNotFound
		}
		return existing, false, nil
	}
	return provider, true, nil
}

func providerNameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
