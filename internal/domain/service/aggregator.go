package service

import (
	"github.com/diting-rss/diting/internal/domain/model"
)

// Aggregate 按分类对新闻分组
// 分组顺序为分类键在输入序列中的首次出现顺序，未指定分类的新闻归入默认分类
func Aggregate(items []model.NewsItem) []model.CategoryGroup {
	index := make(map[string]int, len(items))
	groups := make([]model.CategoryGroup, 0)

	for _, item := range items {
		category := item.Category
		if category == "" {
			category = model.DefaultCategory
		}

		i, seen := index[category]
		if !seen {
			i = len(groups)
			index[category] = i
			groups = append(groups, model.CategoryGroup{Category: category})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}
