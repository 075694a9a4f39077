package budget

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoding() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(encodingName)
		if err == nil {
			enc = e
		}
	})
	return enc
}

// Count returns the cl100k_base token count of text, or a rune/word
// heuristic when the encoding cannot be loaded.
func Count(text string) int {
	if e := encoding(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return estimate(text)
}

func estimate(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	n := len([]rune(trimmed)) / 4
	if w := len(strings.Fields(trimmed)); n < w {
		n = w
	}
	if n == 0 {
		n = 1
	}
	return n
}

// Truncate shortens text to roughly max tokens, appending "..." when cut.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	if e := encoding(); e != nil {
		toks := e.Encode(text, nil, nil)
		if len(toks) <= max {
			return text
		}
		return e.Decode(toks[:max]) + "..."
	}
	runes := []rune(text)
	limit := max * 4
	if limit >= len(runes) {
		return text
	}
	return string(runes[:limit]) + "..."
}

// Fit trims texts so their total token count fits within max, cutting the
// longest entries first. fixed is the token cost of the rest of the prompt.
// Order of texts is preserved.
func Fit(texts []string, fixed, max int) ([]string, error) {
	out := append([]string(nil), texts...)
	if max <= 0 {
		return out, nil
	}
	if fixed > max {
		return nil, ErrExceeded{Kind: "prompt_tokens", Usage: int64(fixed), Limit: int64(max)}
	}
	counts := make([]int, len(out))
	total := fixed
	for i, t := range out {
		counts[i] = Count(t)
		total += counts[i]
	}
	for total > max {
		idx := make([]int, len(out))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return counts[idx[a]] > counts[idx[b]] })
		longest := idx[0]
		if counts[longest] <= 1 {
			return nil, ErrExceeded{Kind: "prompt_tokens", Usage: int64(total), Limit: int64(max)}
		}
		over := total - max
		target := counts[longest] - over
		if floor := counts[longest] / 2; target < floor {
			target = floor
		}
		out[longest] = Truncate(out[longest], target)
		newCount := Count(out[longest])
		if newCount >= counts[longest] {
			// truncation marker can make a tiny text grow; drop it instead
			out[longest] = ""
			newCount = 0
		}
		total -= counts[longest] - newCount
		counts[longest] = newCount
	}
	return out, nil
}
