package model

// 标准库工作簿的 Sheet 名称
const (
	SheetMatched   = "有搜索结果的标准"
	SheetFailed    = "无搜索结果或搜索结果过多的标准"
	SheetErrors    = "报错(debug用)"
	SheetDateEmpty = "标准无详细日期(debug用)"
)

// 列名
const (
	ColCode          = "标准编号"
	ColTitle         = "标准名称"
	ColStatus        = "状态"
	ColPublishDate   = "发布日期"
	ColImplementDate = "实施日期"
	ColWithdrawDate  = "作废日期"
	ColReplacement   = "替代情况"
	ColAdded         = "结果添加日期"
	ColErrorMessage  = "错误信息"
	ColRequestHeader = "Request-Headers"
	ColRespHeader    = "Response-Headers"
	ColDetailHTML    = "r2.text"
)

// MatchedRow “有搜索结果的标准”行
type MatchedRow struct {
	Code          string `json:"code"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	PublishDate   string `json:"publishDate"`
	ImplementDate string `json:"implementDate"`
	WithdrawDate  string `json:"withdrawDate"`
	Replacement   string `json:"replacement"`
	Added         string `json:"added"`
}

// FailedRow “无搜索结果或搜索结果过多的标准”行
type FailedRow struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Added   string `json:"added"`
}

// DateEmptyRow “标准无详细日期”行
type DateEmptyRow struct {
	Code       string `json:"code"`
	DetailHTML string `json:"detailHtml"`
	Added      string `json:"added"`
}

// ErrorRow “报错”行，附带最后一次请求/响应头
type ErrorRow struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	RequestHeader  string `json:"requestHeader"`
	ResponseHeader string `json:"responseHeader"`
	Added          string `json:"added"`
}

// MatchedRowFromHit 把检索结果转成数据集行
func MatchedRowFromHit(h LookupHit, added string) MatchedRow {
	return MatchedRow{
		Code:          h.Code,
		Title:         h.Title,
		Status:        string(h.Status),
		PublishDate:   h.PublishDate,
		ImplementDate: h.ImplementDate,
		WithdrawDate:  h.WithdrawDate,
		Replacement:   h.Replacement,
		Added:         added,
	}
}
