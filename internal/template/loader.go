package template

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/FleetLink/FleetLink/internal/i18n"
)

// ErrTemplateNotFound 指定类型没有任何分类模板
var ErrTemplateNotFound = errors.New("inspection template not found")

// DefaultTitle 翻译缺失时的标题兜底
const DefaultTitle = "Untitled"

// Source 模板加载器的数据来源（由 Repo 实现）
type Source interface {
	ListAssignmentsByVehicle(ctx context.Context, vehicleID string) ([]Assignment, error)
	ListAssignmentsByGroup(ctx context.Context, groupID string) ([]Assignment, error)
	ListCategoriesByType(ctx context.Context, inspectionType string) ([]CategoryTemplate, error)
	ListItemsByCategories(ctx context.Context, categoryIDs []string) ([]ItemTemplate, error)
}

// Loader 模板加载器
type Loader struct {
	source        Source
	defaultLocale string
}

// NewLoader 创建模板加载器
func NewLoader(source Source, defaultLocale string) *Loader {
	if defaultLocale == "" {
		defaultLocale = i18n.FallbackLocale
	}
	return &Loader{source: source, defaultLocale: defaultLocale}
}

// ResolveAssignableTypes 解析车辆可用的检查类型：
// 车辆直接绑定与分组绑定取并集，去重，顺序稳定（直接绑定在前，按首次出现）。
func (l *Loader) ResolveAssignableTypes(ctx context.Context, vehicleID, groupID string) ([]string, error) {
	if l == nil || l.source == nil {
		return nil, fmt.Errorf("template loader is not initialized")
	}
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return nil, fmt.Errorf("vehicle id is empty")
	}

	direct, err := l.source.ListAssignmentsByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	var grouped []Assignment
	if groupID = strings.TrimSpace(groupID); groupID != "" {
		grouped, err = l.source.ListAssignmentsByGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	types := make([]string, 0, len(direct)+len(grouped))
	for _, a := range append(direct, grouped...) {
		t := strings.TrimSpace(a.InspectionType)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	return types, nil
}

// LoadTemplate 加载指定类型的完整模板，生成工作态 section 列表。
// 分类与检查项均按可空 order_number 排序：空值最前，相等保持查询顺序。
// 没有任何分类时返回 ErrTemplateNotFound。
func (l *Loader) LoadTemplate(ctx context.Context, inspectionType, locale string) ([]WorkingSection, error) {
	if l == nil || l.source == nil {
		return nil, fmt.Errorf("template loader is not initialized")
	}
	inspectionType = strings.TrimSpace(inspectionType)
	if inspectionType == "" {
		return nil, fmt.Errorf("inspection type is empty")
	}
	if locale = strings.TrimSpace(locale); locale == "" {
		locale = l.defaultLocale
	}

	categories, err := l.source.ListCategoriesByType(ctx, inspectionType)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: type=%s", ErrTemplateNotFound, inspectionType)
	}

	sortByOrderNumber(categories, func(c CategoryTemplate) *int { return c.OrderNumber })

	categoryIDs := make([]string, 0, len(categories))
	for _, c := range categories {
		categoryIDs = append(categoryIDs, c.ID)
	}

	items, err := l.source.ListItemsByCategories(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	sortByOrderNumber(items, func(it ItemTemplate) *int { return it.OrderNumber })

	itemsByCategory := make(map[string][]ItemTemplate)
	for _, it := range items {
		itemsByCategory[it.CategoryID] = append(itemsByCategory[it.CategoryID], it)
	}

	sections := make([]WorkingSection, 0, len(categories))
	for _, c := range categories {
		section := WorkingSection{
			CategoryID: c.ID,
			Title:      i18n.Resolve(c.NameTranslations.Data(), locale, DefaultTitle),
		}
		for _, it := range itemsByCategory[c.ID] {
			section.Items = append(section.Items, WorkingItem{
				TemplateID:    it.ID,
				Title:         i18n.Resolve(it.NameTranslations.Data(), locale, DefaultTitle),
				Description:   i18n.Resolve(it.DescriptionTranslations.Data(), locale, ""),
				RequiresPhoto: it.RequiresPhoto,
				RequiresNotes: it.RequiresNotes,
				Photos:        []string{},
			})
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// sortByOrderNumber 可空序号的稳定排序：nil 最小。
func sortByOrderNumber[T any](list []T, key func(T) *int) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := key(list[i]), key(list[j])
		if a == nil && b == nil {
			return false
		}
		if a == nil {
			return true
		}
		if b == nil {
			return false
		}
		return *a < *b
	})
}
