package classify

// QueryType 分类结果，作为调度键使用
type QueryType string

const (
	Performance     QueryType = "performance"
	Activity        QueryType = "activity"
	Categorize      QueryType = "categorize"
	Tax             QueryType = "tax"
	Compliance      QueryType = "compliance"
	Market          QueryType = "market"
	MarketOverview  QueryType = "market_overview"
	Property        QueryType = "property"
	Affordability   QueryType = "affordability"
	ContextFollowup QueryType = "context_followup"

	// 组合读路径
	PerformanceMarket             QueryType = "performance+market"
	ActivityMarket                QueryType = "activity+market"
	ActivityCompliance            QueryType = "activity+compliance"
	ComplianceTax                 QueryType = "compliance+tax"
	PerformanceComplianceActivity QueryType = "performance+compliance+activity"

	// 写意图
	Buy         QueryType = "buy"
	Sell        QueryType = "sell"
	Dividend    QueryType = "dividend"
	Cash        QueryType = "cash"
	Transaction QueryType = "transaction"

	// 写协议控制
	WriteConfirmed QueryType = "write_confirmed"
	WriteCancelled QueryType = "write_cancelled"
	WriteRefused   QueryType = "write_refused"
)

// IsWriteIntent 是否为需要进入确认流程的写意图
func (q QueryType) IsWriteIntent() bool {
	switch q {
	case Buy, Sell, Dividend, Cash, Transaction:
		return true
	}
	return false
}

// IsWriteControl 是否为写协议控制类型（确认/取消/拒绝）
func (q QueryType) IsWriteControl() bool {
	switch q {
	case WriteConfirmed, WriteCancelled, WriteRefused:
		return true
	}
	return false
}
