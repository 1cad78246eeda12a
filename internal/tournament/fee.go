package tournament

import (
	"strconv"
	"strings"
	"unicode"
)

// FreeToken marks a free entry in fee cells.
const FreeToken = "무료"

var feeReplacer = strings.NewReplacer(",", "", "원", "")

// ParseFee converts fee text such as "54,000원" into whole won. Blank text,
// "무료" and anything without a leading number parse as 0. The result is
// never negative.
func ParseFee(text string) int {
	cleaned := strings.TrimSpace(feeReplacer.Replace(text))
	if cleaned == "" || cleaned == FreeToken {
		return 0
	}

	end := strings.IndexFunc(cleaned, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == 0 {
		return 0
	}
	if end > 0 {
		cleaned = cleaned[:end]
	}

	fee, err := strconv.Atoi(cleaned)
	if err != nil || fee < 0 {
		return 0
	}
	return fee
}
