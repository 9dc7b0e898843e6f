// services/course_service.go - Golf course directory
package services

import (
	"context"
	"strings"

	"teetime/models"

	"gorm.io/gorm"
)

type CourseService struct {
	db *gorm.DB
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{db: db}
}

type CourseFilter struct {
	Query   string `json:"q" validate:"max=100"`
	State   string `json:"state" validate:"omitempty,len=2"`
	ZipCode string `json:"zip" validate:"omitempty,max=10"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
}

// Bounds is a map viewport. West greater than East means the box crosses
// the antimeridian.
type Bounds struct {
	South float64 `json:"south" validate:"latitude"`
	West  float64 `json:"west" validate:"longitude"`
	North float64 `json:"north" validate:"latitude"`
	East  float64 `json:"east" validate:"longitude"`
}

const (
	autocompleteLimit = 10
	mapLimit          = 500
)

// Search filters courses by name/city text, state and zip.
func (s *CourseService) Search(ctx context.Context, f CourseFilter) ([]models.GolfCourse, int64, error) {
	if err := validate(&f); err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 25
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := s.db.WithContext(ctx).Model(&models.GolfCourse{})
	if term := strings.ToLower(strings.TrimSpace(f.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(city) LIKE ?", like, like)
	}
	if f.State != "" {
		q = q.Where("state = ?", strings.ToUpper(f.State))
	}
	if f.ZipCode != "" {
		q = q.Where("zip_code = ?", f.ZipCode)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var courses []models.GolfCourse
	err := q.Order("name ASC, id ASC").Limit(f.Limit).Offset(f.Offset).Find(&courses).Error
	return courses, total, err
}

// Autocomplete returns up to ten courses whose name starts with prefix.
func (s *CourseService) Autocomplete(ctx context.Context, prefix string) ([]models.GolfCourse, error) {
	prefix = strings.NewReplacer("%", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(prefix)))
	if len(prefix) < 2 {
		return []models.GolfCourse{}, nil
	}

	var courses []models.GolfCourse
	err := s.db.WithContext(ctx).
		Select("id", "name", "city", "state", "zip_code", "address").
		Where("LOWER(name) LIKE ?", prefix+"%").
		Order("name ASC").
		Limit(autocompleteLimit).
		Find(&courses).Error
	return courses, err
}

func (s *CourseService) Get(ctx context.Context, id uint) (*models.GolfCourse, error) {
	var course models.GolfCourse
	if err := s.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, notFoundOr(err, "Golf course not found")
	}
	return &course, nil
}

// InBounds returns geocoded courses inside the viewport.
func (s *CourseService) InBounds(ctx context.Context, b Bounds) ([]models.GolfCourse, error) {
	if err := validate(&b); err != nil {
		return nil, err
	}
	if b.South > b.North {
		return nil, invalid("south must not be greater than north")
	}

	q := s.db.WithContext(ctx).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", b.South, b.North)
	if b.West <= b.East {
		q = q.Where("longitude BETWEEN ? AND ?", b.West, b.East)
	} else {
		q = q.Where("(longitude >= ? OR longitude <= ?)", b.West, b.East)
	}

	var courses []models.GolfCourse
	err := q.Order("id ASC").Limit(mapLimit).Find(&courses).Error
	return courses, err
}
