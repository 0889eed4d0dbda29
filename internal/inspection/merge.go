package inspection

import (
	"github.com/FleetLink/FleetLink/internal/template"
)

// MergeExisting 把已有巡检结果并入工作态 section：
// 按 template_id 对齐，命中的项覆盖 status/notes/photos（照片原样、入库顺序），
// 未命中的项保持默认，模板顺序不受影响。
// 纯函数，原地修改 sections。
func MergeExisting(sections []template.WorkingSection, items []ItemRecord, photos []PhotoRecord) {
	if len(sections) == 0 || len(items) == 0 {
		return
	}

	photosByItem := make(map[string][]string)
	for _, p := range photos {
		photosByItem[p.InspectionItemID] = append(photosByItem[p.InspectionItemID], p.PhotoURL)
	}

	byTemplate := make(map[string]ItemRecord, len(items))
	for _, it := range items {
		byTemplate[it.TemplateID] = it
	}

	for si := range sections {
		for ii := range sections[si].Items {
			w := &sections[si].Items[ii]
			rec, ok := byTemplate[w.TemplateID]
			if !ok {
				continue
			}
			if rec.Status != "" {
				status := rec.Status
				w.Status = &status
			} else {
				w.Status = nil
			}
			w.Notes = rec.Notes
			if urls := photosByItem[rec.ID]; len(urls) > 0 {
				w.Photos = append([]string{}, urls...)
			} else {
				w.Photos = []string{}
			}
		}
	}
}
