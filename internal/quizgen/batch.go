package quizgen

import "github.com/abhisek/quizforge/internal/mcq"

// PlanBatches splits the requested tier counts into provider-call sized
// batches. Tiers drain in priority order, easiest first, so a batch may
// straddle a tier boundary: easy=3, medium=1 with size 2 plans as
// [{easy:2}, {easy:1, medium:1}].
func PlanBatches(counts mcq.TierCounts, size int) []mcq.TierCounts {
	if size <= 0 {
		size = 1
	}
	var batches []mcq.TierCounts
	remaining := counts
	for remaining.Total() > 0 {
		var batch mcq.TierCounts
		room := size
		for _, tier := range mcq.Difficulties() {
			if room == 0 {
				break
			}
			n := remaining.Get(tier)
			if n > room {
				n = room
			}
			if n == 0 {
				continue
			}
			batch.Add(tier, n)
			remaining.Add(tier, -n)
			room -= n
		}
		batches = append(batches, batch)
	}
	return batches
}
