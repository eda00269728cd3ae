package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "stontr/internal/errors"
	"stontr/internal/logger"
	"stontr/internal/models"
	"stontr/internal/pagination"
)

// defaultCategoryColor is applied when a category is created without one.
const defaultCategoryColor = "#4CAF50"

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a category under its normalized name. The name is
// trimmed and lowercased before the uniqueness check so "Social" and
// " social " map to the same row.
func (s *categoryService) CreateCategory(name, color string) (*models.Category, error) {
	normalized := models.NormalizeCategoryName(name)
	if normalized == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Category name is required")
	}

	var count int64
	if err := s.db.Model(&models.Category{}).Where("name = ?", normalized).Count(&count).Error; err != nil {
		logger.Get().Errorw("Failed to check category name", "name", normalized, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrCategoryExists
	}

	if color == "" {
		color = defaultCategoryColor
	}

	category := &models.Category{
		Name:  normalized,
		Color: color,
	}
	if err := s.db.Create(category).Error; err != nil {
		logger.Get().Errorw("Failed to create category", "name", normalized, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// GetCategories retrieves categories ordered by name.
func (s *categoryService) GetCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	var categories []models.Category
	var total int64

	if err := s.db.Model(&models.Category{}).Count(&total).Error; err != nil {
		logger.Get().Errorw("Failed to count categories", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&categories).Error; err != nil {
		logger.Get().Errorw("Failed to get categories", "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	response := pagination.NewPageResponse(categories, page.Page, page.PageSize, total)
	return &response, nil
}

// GetCategoryByID retrieves a single category.
func (s *categoryService) GetCategoryByID(categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		logger.Get().Errorw("Failed to get category", "categoryID", categoryID, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// DeleteCategory removes a category. Deletion is refused while events still
// reference the category so imports cannot be orphaned.
func (s *categoryService) DeleteCategory(categoryID string) error {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return err
	}

	var inUse int64
	if err := s.db.Model(&models.Event{}).Where("category_id = ?", category.ID).Count(&inUse).Error; err != nil {
		logger.Get().Errorw("Failed to count events for category", "categoryID", categoryID, "error", err)
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if inUse > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.db.Delete(category).Error; err != nil {
		logger.Get().Errorw("Failed to delete category", "categoryID", categoryID, "error", err)
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
