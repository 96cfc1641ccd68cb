package app

import "github.com/John-Robertt/pxcrawl/internal/domain"

// Seed 把来源产出的 id 序列整理为抓取队列的初始内容。
//
// - 保持来源给出的顺序（队列位置决定默认排序）
// - 同一 id 只入队一次；重复项按出现顺序返回，便于上层提示
// - 空串 id 丢弃
func Seed(ids []domain.WorkID) (queue []domain.WorkID, duplicates []domain.WorkID) {
	seen := make(map[domain.WorkID]struct{}, len(ids))
	queue = make([]domain.WorkID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			duplicates = append(duplicates, id)
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, id)
	}
	return queue, duplicates
}
