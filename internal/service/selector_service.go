package service

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"unistudy_backend/internal/model"
)

const (
	// gapPriorityBase / gapPriorityPerSeverity 薄弱项档：100 + severity×90，severity 1-10 ⇒ 190-1000
	gapPriorityBase        = 100.0
	gapPriorityPerSeverity = 90.0
	// reviewPriorityBase 复习档：50 + min(逾期天数×5, 49) ⇒ 50-99
	reviewPriorityBase       = 50.0
	reviewPriorityPerDay     = 5.0
	reviewPriorityBonusLimit = 49.0
	// tierShareLimit 薄弱/复习两档各自的名额上限占比
	tierShareLimit = 0.4
)

// SelectionInput 选题输入。Gaps/Due/Fresh 三个集合由上游按用户状态算好，
// 选题器只负责打分和配额，不读任何持久化状态。
type SelectionInput struct {
	CourseID uint
	UnitIDs  []uint // 为空表示整个课程
	Pool     []model.StudyItem
	Gaps     map[uint]int  // itemID -> 薄弱严重度 1-10
	Due      map[uint]int  // itemID -> 逾期天数
	Fresh    map[uint]bool // 从未作答
	MaxItems int
}

// SelectionResult 有序选题结果及分档统计
type SelectionResult struct {
	Items       []model.StudyItem
	GapCount    int
	ReviewCount int
	NewCount    int
	Priority    model.SessionPriority
}

type itemTier int

const (
	tierGap itemTier = iota
	tierReview
	tierNew
)

type scoredItem struct {
	item  model.StudyItem
	score float64
	tier  itemTier
}

// SelectorService 候选池打分与配额选题。
// 新题档的随机打分使用注入的可播种随机源，测试固定种子即可得到确定顺序。
type SelectorService struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelectorService(seed int64) *SelectorService {
	return &SelectorService{rng: rand.New(rand.NewSource(seed))}
}

// Select 按三档优先级选出至多 MaxItems 个练习项：
// 1. 作用域过滤：仅保留请求课程（及指定单元）内的练习项，拒绝跨课程/跨单元泄漏
// 2. 打分：薄弱 > 复习 > 新题，三档都不命中的项不参与选题
// 3. 降序排序后按配额装填：薄弱、复习各占至多 ceil(MaxItems×0.4)，
//    剩余名额给新题；任何档位不超额补位，新题不足时会话允许不满
// 空候选池返回空结果，不报错。
func (s *SelectorService) Select(in SelectionInput) SelectionResult {
	result := SelectionResult{Items: []model.StudyItem{}, Priority: model.PriorityNew}
	if len(in.Pool) == 0 || in.MaxItems <= 0 {
		return result
	}

	unitScope := make(map[uint]bool, len(in.UnitIDs))
	for _, id := range in.UnitIDs {
		unitScope[id] = true
	}

	scored := make([]scoredItem, 0, len(in.Pool))
	for _, item := range in.Pool {
		if item.CourseID != in.CourseID {
			continue
		}
		if len(unitScope) > 0 && !unitScope[item.UnitID] {
			continue
		}

		if severity, ok := in.Gaps[item.ID]; ok {
			scored = append(scored, scoredItem{
				item:  item,
				score: gapPriorityBase + float64(severity)*gapPriorityPerSeverity,
				tier:  tierGap,
			})
			continue
		}
		if overdue, ok := in.Due[item.ID]; ok {
			bonus := math.Min(float64(overdue)*reviewPriorityPerDay, reviewPriorityBonusLimit)
			scored = append(scored, scoredItem{
				item:  item,
				score: reviewPriorityBase + bonus,
				tier:  tierReview,
			})
			continue
		}
		if in.Fresh[item.ID] {
			scored = append(scored, scoredItem{
				item:  item,
				score: s.newItemScore(),
				tier:  tierNew,
			})
		}
		// 三档都不命中：已作答、未到期、也非薄弱，本次不选
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	tierCap := int(math.Ceil(float64(in.MaxItems) * tierShareLimit))
	for _, sc := range scored {
		if len(result.Items) >= in.MaxItems {
			break
		}
		switch sc.tier {
		case tierGap:
			if result.GapCount >= tierCap {
				continue
			}
			result.GapCount++
		case tierReview:
			if result.ReviewCount >= tierCap {
				continue
			}
			result.ReviewCount++
		case tierNew:
			result.NewCount++
		}
		result.Items = append(result.Items, sc.item)
	}

	result.Priority = classifySelection(result.GapCount, result.ReviewCount, result.NewCount)
	return result
}

// newItemScore (1, 50) 区间的均匀随机分，打散等价新题的顺序
func (s *SelectorService) newItemScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 1 + s.rng.Float64()*49
}

// classifySelection 主导档位判定：某一档严格多于其余两档时取该档，
// 否则视为 mixed；空会话归为 new。
func classifySelection(gaps, reviews, fresh int) model.SessionPriority {
	switch {
	case gaps == 0 && reviews == 0:
		return model.PriorityNew
	case gaps > reviews && gaps > fresh:
		return model.PriorityGaps
	case reviews > gaps && reviews > fresh:
		return model.PriorityReviews
	case fresh > gaps && fresh > reviews:
		return model.PriorityNew
	default:
		return model.PriorityMixed
	}
}
