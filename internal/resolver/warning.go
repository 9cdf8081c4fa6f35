package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/peterjiatong/csres-standard-review/internal/registry"
)

// englishSuffix 英文版编号后缀
const englishSuffix = "E"

// WarningKind 关联提醒类型
type WarningKind int

const (
	NoWarning WarningKind = iota
	EnglishEditionExists
	AmendmentsExist
	NewerAmendmentExists
	AlreadyLatestAmendment
)

func (k WarningKind) String() string {
	switch k {
	case EnglishEditionExists:
		return "english_edition_exists"
	case AmendmentsExist:
		return "amendments_exist"
	case NewerAmendmentExists:
		return "newer_amendment_exists"
	case AlreadyLatestAmendment:
		return "already_latest_amendment"
	default:
		return "none"
	}
}

// MarshalText 以名称输出，便于 JSON 阅读
func (k WarningKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 解析 MarshalText 的输出
func (k *WarningKind) UnmarshalText(b []byte) error {
	for _, kind := range []WarningKind{NoWarning, EnglishEditionExists, AmendmentsExist, NewerAmendmentExists, AlreadyLatestAmendment} {
		if kind.String() == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown warning kind: %q", b)
}

// Warning 关联提醒（英文版 / 修改单），不影响检查结论
type Warning struct {
	Kind  WarningKind `json:"kind"`
	Codes []string    `json:"codes,omitempty"`
}

// Present 是否存在提醒
func (w Warning) Present() bool {
	return w.Kind != NoWarning
}

// Text 提醒文字
func (w Warning) Text() string {
	switch w.Kind {
	case EnglishEditionExists:
		return fmt.Sprintf("(发现英文版 %s)", strings.Join(w.Codes, ", "))
	case AmendmentsExist:
		return fmt.Sprintf("(存在 %d 个修改单：%s)", len(w.Codes), strings.Join(w.Codes, ", "))
	case NewerAmendmentExists:
		return fmt.Sprintf("(存在更新的序号修改单：%s)", strings.Join(w.Codes, ", "))
	case AlreadyLatestAmendment:
		return "（已是最新修改单）"
	default:
		return ""
	}
}

// Relation 计算编号的关联提醒。
// 英文版提醒与修改单提醒互斥：存在英文版时不再检查修改单。
func Relation(reg *registry.Registry, code string) Warning {
	if !strings.HasSuffix(code, englishSuffix) {
		if eng := code + englishSuffix; reg.Has(eng) {
			return Warning{Kind: EnglishEditionExists, Codes: []string{eng}}
		}
	}

	base, tail, isAmendment := registry.SplitAmendment(code)
	if !isAmendment {
		if mods := reg.AmendmentsOf(base); len(mods) > 0 {
			return Warning{Kind: AmendmentsExist, Codes: mods}
		}
		return Warning{}
	}

	cur := amendmentIndex(tail)
	var newer []string
	for _, mod := range reg.AmendmentsOf(base) {
		_, modTail, _ := registry.SplitAmendment(mod)
		idx := amendmentIndex(modTail)
		if idx < 0 {
			continue
		}
		if idx > cur {
			newer = append(newer, mod)
		}
	}
	if len(newer) > 0 {
		return Warning{Kind: NewerAmendmentExists, Codes: newer}
	}
	return Warning{Kind: AlreadyLatestAmendment}
}

// amendmentIndex 解析修改单序号："1-2022" → 1；无法解析时为 -1
func amendmentIndex(tail string) int {
	num, _, _ := strings.Cut(tail, "-")
	n, err := strconv.Atoi(num)
	if err != nil {
		return -1
	}
	return n
}
