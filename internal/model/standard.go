package model

// Status 标准状态（取自标准库“状态”列）
type Status string

const (
	StatusCurrent   Status = "现行"
	StatusUpcoming  Status = "即将实施"
	StatusWithdrawn Status = "作废"
	StatusAbolished Status = "废止"
)

// InForce 现行或即将实施
func (s Status) InForce() bool {
	return s == StatusCurrent || s == StatusUpcoming
}

// Withdrawn 作废或废止，只有这两种状态才抓取替代情况和作废日期
func (s Status) Withdrawn() bool {
	return s == StatusWithdrawn || s == StatusAbolished
}

// Mention 报告中检出的一条标准引用
type Mention struct {
	Original string `json:"original"` // 报告原文中的编号
	Code     string `json:"code"`     // 去空格后的编号
	Title    string `json:"title"`    // 半角化后的名称
}

// RegistryEntry 标准库中的一条记录
type RegistryEntry struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Status      Status `json:"status"`
	Replacement string `json:"replacement,omitempty"`
}

// LookupHit 远程检索得到的一条权威记录
type LookupHit struct {
	Code          string `json:"code"`
	Title         string `json:"title"`
	Status        Status `json:"status"`
	PublishDate   string `json:"publishDate"`
	ImplementDate string `json:"implementDate"`
	WithdrawDate  string `json:"withdrawDate"`
	Replacement   string `json:"replacement"`
	DetailHTML    string `json:"-"` // 详情页原文，日期缺失时用于排查
}

// MissingDates 发布、实施、作废日期全部为空
func (h LookupHit) MissingDates() bool {
	return h.PublishDate == "" && h.ImplementDate == "" && h.WithdrawDate == ""
}

// CheckStatus 单条引用的检查结论
type CheckStatus string

const (
	CheckOK          CheckStatus = "ok"
	CheckNoExist     CheckStatus = "no_exist"
	CheckStatusWrong CheckStatus = "status_wrong"
	CheckNameWrong   CheckStatus = "name_wrong"
)

// CheckResult 检查结果
type CheckResult struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
	Warning string      `json:"warning,omitempty"`
}

// OK 是否通过
func (r CheckResult) OK() bool {
	return r.Status == CheckOK
}
