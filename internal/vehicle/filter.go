package vehicle

import "strings"

// Filter 车辆列表过滤条件
type Filter struct {
	Query   string // 名称或车牌模糊匹配，大小写不敏感
	Brand   string
	Model   string
	GroupID string
	Page    int // 从 1 开始
	PerPage int
}

// FilterResult 过滤结果与分页信息
type FilterResult struct {
	Vehicles   []Vehicle
	Total      int
	Page       int
	TotalPages int
}

// ApplyFilter 纯内存过滤 + 分页，不触达任何 I/O。
// 过滤顺序：精确条件（brand/model/group）先于模糊查询；
// 分页越界时返回空页而不是错误。
func ApplyFilter(vehicles []Vehicle, f Filter) FilterResult {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	matched := make([]Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if f.Brand != "" && v.Brand != f.Brand {
			continue
		}
		if f.Model != "" && v.Model != f.Model {
			continue
		}
		if f.GroupID != "" && v.GroupID != f.GroupID {
			continue
		}
		if query != "" {
			name := strings.ToLower(v.Name)
			plate := strings.ToLower(v.PlateNumber)
			if !strings.Contains(name, query) && !strings.Contains(plate, query) {
				continue
			}
		}
		matched = append(matched, v)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 {
		perPage = 20
	}

	total := len(matched)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * perPage
	if start >= total {
		return FilterResult{Vehicles: []Vehicle{}, Total: total, Page: page, TotalPages: totalPages}
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return FilterResult{Vehicles: matched[start:end], Total: total, Page: page, TotalPages: totalPages}
}
