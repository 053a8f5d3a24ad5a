package service

import (
	"fmt"
	"testing"

	"unistudy_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolItem(id, courseID, unitID uint) model.StudyItem {
	return model.StudyItem{
		BaseModel:   model.BaseModel{ID: id},
		CourseID:    courseID,
		UnitID:      unitID,
		ContentType: model.ContentCuecards,
	}
}

func itemIDs(items []model.StudyItem) []uint {
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

func TestSelectEmptyPool(t *testing.T) {
	selector := NewSelectorService(1)

	result := selector.Select(SelectionInput{CourseID: 1, MaxItems: 10})

	assert.Empty(t, result.Items)
	assert.Equal(t, model.PriorityNew, result.Priority)
}

func TestSelectNonPositiveMaxItems(t *testing.T) {
	selector := NewSelectorService(1)

	result := selector.Select(SelectionInput{
		CourseID: 1,
		Pool:     []model.StudyItem{poolItem(1, 1, 1)},
		Fresh:    map[uint]bool{1: true},
		MaxItems: 0,
	})

	assert.Empty(t, result.Items)
	assert.Equal(t, model.PriorityNew, result.Priority)
}

func TestSelectScopeFilter(t *testing.T) {
	selector := NewSelectorService(1)

	pool := []model.StudyItem{
		poolItem(1, 1, 10),
		poolItem(2, 2, 20), // 其它课程
		poolItem(3, 1, 11), // 同课程、不在请求单元内
	}
	fresh := map[uint]bool{1: true, 2: true, 3: true}

	result := selector.Select(SelectionInput{
		CourseID: 1,
		UnitIDs:  []uint{10},
		Pool:     pool,
		Fresh:    fresh,
		MaxItems: 10,
	})

	assert.Equal(t, []uint{1}, itemIDs(result.Items))

	// 不限定单元时课程内全部可选，跨课程仍被拒绝
	result = selector.Select(SelectionInput{CourseID: 1, Pool: pool, Fresh: fresh, MaxItems: 10})
	assert.ElementsMatch(t, []uint{1, 3}, itemIDs(result.Items))
}

func TestSelectTierOrdering(t *testing.T) {
	selector := NewSelectorService(1)

	pool := []model.StudyItem{
		poolItem(1, 1, 1), // 薄弱 severity 3 → 370
		poolItem(2, 1, 1), // 薄弱 severity 8 → 820
		poolItem(3, 1, 1), // 逾期 10 天 → 99
		poolItem(4, 1, 1), // 逾期 2 天 → 60
		poolItem(5, 1, 1), // 新题 (1,50)
	}
	result := selector.Select(SelectionInput{
		CourseID: 1,
		Pool:     pool,
		Gaps:     map[uint]int{1: 3, 2: 8},
		Due:      map[uint]int{3: 10, 4: 2},
		Fresh:    map[uint]bool{5: true},
		MaxItems: 5,
	})

	assert.Equal(t, []uint{2, 1, 3, 4, 5}, itemIDs(result.Items))
	assert.Equal(t, 2, result.GapCount)
	assert.Equal(t, 2, result.ReviewCount)
	assert.Equal(t, 1, result.NewCount)
	assert.Equal(t, model.PriorityMixed, result.Priority)
}

func TestSelectReviewBonusIsCapped(t *testing.T) {
	selector := NewSelectorService(1)

	// 逾期 200 天的加成封顶在 49，最老的复习项分数不会越级压过薄弱项
	pool := []model.StudyItem{
		poolItem(1, 1, 1), // severity 1 薄弱 → 190
		poolItem(2, 1, 1), // 逾期 200 天 → 99
	}
	result := selector.Select(SelectionInput{
		CourseID: 1,
		Pool:     pool,
		Gaps:     map[uint]int{1: 1},
		Due:      map[uint]int{2: 200},
		MaxItems: 2,
	})

	assert.Equal(t, []uint{1, 2}, itemIDs(result.Items))
}

func TestSelectTierCaps(t *testing.T) {
	selector := NewSelectorService(1)

	// 各 10 个候选，MaxItems=20：薄弱/复习各限 ceil(20×0.4)=8，新题补满到 4
	var pool []model.StudyItem
	gaps := map[uint]int{}
	due := map[uint]int{}
	fresh := map[uint]bool{}
	for i := uint(1); i <= 10; i++ {
		pool = append(pool, poolItem(i, 1, 1))
		gaps[i] = 5
	}
	for i := uint(11); i <= 20; i++ {
		pool = append(pool, poolItem(i, 1, 1))
		due[i] = 3
	}
	for i := uint(21); i <= 30; i++ {
		pool = append(pool, poolItem(i, 1, 1))
		fresh[i] = true
	}

	result := selector.Select(SelectionInput{
		CourseID: 1, Pool: pool, Gaps: gaps, Due: due, Fresh: fresh, MaxItems: 20,
	})

	assert.Len(t, result.Items, 20)
	assert.Equal(t, 8, result.GapCount)
	assert.Equal(t, 8, result.ReviewCount)
	assert.Equal(t, 4, result.NewCount)
}

func TestSelectNoBackfillAcrossTiers(t *testing.T) {
	selector := NewSelectorService(1)

	// 8 个薄弱 + 1 个新题，MaxItems=10：薄弱限 4，空出的名额不回填给薄弱档
	var pool []model.StudyItem
	gaps := map[uint]int{}
	for i := uint(1); i <= 8; i++ {
		pool = append(pool, poolItem(i, 1, 1))
		gaps[i] = 5
	}
	pool = append(pool, poolItem(9, 1, 1))

	result := selector.Select(SelectionInput{
		CourseID: 1,
		Pool:     pool,
		Gaps:     gaps,
		Fresh:    map[uint]bool{9: true},
		MaxItems: 10,
	})

	assert.Len(t, result.Items, 5, "4 gap slots + 1 new item,短缺不补")
	assert.Equal(t, 4, result.GapCount)
	assert.Equal(t, 1, result.NewCount)
}

func TestSelectSkipsUnclassifiedItems(t *testing.T) {
	selector := NewSelectorService(1)

	// 已作答、未到期、亦非薄弱的项不参与本次选题
	pool := []model.StudyItem{poolItem(1, 1, 1), poolItem(2, 1, 1)}
	result := selector.Select(SelectionInput{
		CourseID: 1,
		Pool:     pool,
		Fresh:    map[uint]bool{2: true},
		MaxItems: 10,
	})

	assert.Equal(t, []uint{2}, itemIDs(result.Items))
}

func TestSelectSameSeedSameOrder(t *testing.T) {
	input := func() SelectionInput {
		var pool []model.StudyItem
		fresh := map[uint]bool{}
		for i := uint(1); i <= 12; i++ {
			pool = append(pool, poolItem(i, 1, 1))
			fresh[i] = true
		}
		return SelectionInput{CourseID: 1, Pool: pool, Fresh: fresh, MaxItems: 6}
	}

	first := NewSelectorService(99).Select(input())
	second := NewSelectorService(99).Select(input())

	require.Equal(t, itemIDs(first.Items), itemIDs(second.Items))
	assert.Len(t, first.Items, 6)
}

func TestClassifySelection(t *testing.T) {
	cases := []struct {
		gaps, reviews, fresh int
		want                 model.SessionPriority
	}{
		{0, 0, 0, model.PriorityNew},
		{0, 0, 5, model.PriorityNew},
		{3, 1, 1, model.PriorityGaps},
		{1, 3, 1, model.PriorityReviews},
		{1, 1, 3, model.PriorityNew},
		{2, 2, 1, model.PriorityMixed},
		{2, 2, 2, model.PriorityMixed},
		{0, 2, 2, model.PriorityMixed},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_%d_%d", tc.gaps, tc.reviews, tc.fresh), func(t *testing.T) {
			assert.Equal(t, tc.want, classifySelection(tc.gaps, tc.reviews, tc.fresh))
		})
	}
}
