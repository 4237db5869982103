package analysis

import "strings"

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// SyllableHint 用元音段近似切分音节，作为发音提示，例如 banana -> ba-na-na。
// 每个跟在非元音段之后的元音开启一个新音节，词尾的纯辅音段并入最后一个音节。
func SyllableHint(word string) string {
	lowered := strings.ToLower(strings.TrimSpace(word))
	if lowered == "" {
		return ""
	}

	var segments []string
	var current []rune
	sawVowel := false
	for _, r := range lowered {
		if !isVowel(r) && sawVowel {
			// 元音段结束，当前音节完结；该辅音作为下一个音节的起始
			segments = append(segments, string(current))
			current = current[:0]
			sawVowel = false
		}
		current = append(current, r)
		if isVowel(r) {
			sawVowel = true
		}
	}

	if len(current) > 0 {
		if sawVowel || len(segments) == 0 {
			segments = append(segments, string(current))
		} else {
			segments[len(segments)-1] += string(current)
		}
	}
	return strings.Join(segments, "-")
}
