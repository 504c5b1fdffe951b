package entity

// TransitionTable 生命周期状态机：state → 允许进入的下一批状态
// 所有状态变更必须先过表，禁止散落在各操作里的零散判断
type TransitionTable map[string][]string

// Can 判断 from → to 是否为合法迁移
func (t TransitionTable) Can(from, to string) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal 判断某状态是否终态（无出边）
func (t TransitionTable) Terminal(state string) bool {
	return len(t[state]) == 0
}

// RFQTransitions RFQ生命周期
// cancelled 可从除 completed 以外的任意状态进入
var RFQTransitions = TransitionTable{
	RFQStatusDraft:       {RFQStatusPublished, RFQStatusCancelled},
	RFQStatusPublished:   {RFQStatusUnderReview, RFQStatusClosed, RFQStatusCancelled},
	RFQStatusUnderReview: {RFQStatusClosed, RFQStatusCompleted, RFQStatusCancelled},
	RFQStatusClosed:      {RFQStatusCompleted, RFQStatusCancelled},
	RFQStatusCompleted:   {},
	RFQStatusCancelled:   {},
}

// QuotationTransitions 报价单生命周期
// approved/rejected 由行项审批结论聚合而来；completed 仅可从 approved 进入
var QuotationTransitions = TransitionTable{
	QuotationStatusDraft:             {QuotationStatusSubmitted},
	QuotationStatusSubmitted:         {QuotationStatusApproved, QuotationStatusRejected, QuotationStatusPartiallyApproved, QuotationStatusWithdrawn},
	QuotationStatusApproved:          {QuotationStatusCompleted},
	QuotationStatusPartiallyApproved: {},
	QuotationStatusRejected:          {},
	QuotationStatusWithdrawn:         {},
	QuotationStatusCompleted:         {},
}
