package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidCategory = errors.New("model: invalid category")

// Category is the closed set of activity classes the engine understands.
type Category string

const (
	CategoryExam   Category = "Exam"
	CategoryStudy  Category = "Study"
	CategoryGym    Category = "Gym"
	CategorySocial Category = "Social"
	CategoryGaming Category = "Gaming"
)

// Categories lists every category from most to least important.
var Categories = []Category{CategoryExam, CategoryStudy, CategoryGym, CategorySocial, CategoryGaming}

func (c Category) IsValid() bool {
	switch c {
	case CategoryExam, CategoryStudy, CategoryGym, CategorySocial, CategoryGaming:
		return true
	default:
		return false
	}
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(name string) (Category, error) {
	trimmed := strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(string(c), trimmed) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, name)
}

type CategoryInfo struct {
	Name        Category
	Priority    int
	Color       string
	Description string
}

// PriorityTable is a read-only category ranking. Higher priority wins conflicts.
type PriorityTable struct {
	entries map[Category]CategoryInfo
}

func NewPriorityTable(infos ...CategoryInfo) PriorityTable {
	entries := make(map[Category]CategoryInfo, len(infos))
	for _, info := range infos {
		entries[info.Name] = info
	}
	return PriorityTable{entries: entries}
}

func DefaultPriorityTable() PriorityTable {
	return NewPriorityTable(DefaultCategoryInfos()...)
}

func DefaultCategoryInfos() []CategoryInfo {
	return []CategoryInfo{
		{Name: CategoryExam, Priority: 5, Color: "#FF0000", Description: "Exams and tests"},
		{Name: CategoryStudy, Priority: 4, Color: "#FFA500", Description: "Study sessions"},
		{Name: CategoryGym, Priority: 3, Color: "#00FF00", Description: "Gym and fitness activities"},
		{Name: CategorySocial, Priority: 2, Color: "#0000FF", Description: "Social events and gatherings"},
		{Name: CategoryGaming, Priority: 1, Color: "#800080", Description: "Gaming and entertainment"},
	}
}

func (t PriorityTable) Priority(c Category) (int, bool) {
	info, ok := t.entries[c]
	if !ok {
		return 0, false
	}
	return info.Priority, true
}

func (t PriorityTable) Info(c Category) (CategoryInfo, bool) {
	info, ok := t.entries[c]
	return info, ok
}

// Infos returns the table ordered from highest to lowest priority.
func (t PriorityTable) Infos() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(t.entries))
	for _, c := range Categories {
		if info, ok := t.entries[c]; ok {
			out = append(out, info)
		}
	}
	return out
}
