package progress

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/jmorganca/ollama-export/format"
	"golang.org/x/term"
)

const defaultTermWidth = 80

// Bar is a byte-count progress bar:
//
//	copying llama3:latest  42% ▕█████     ▏ (2.1 GB/5.0 GB)
type Bar struct {
	message string

	maxValue     int64
	currentValue int64
}

func NewBar(message string, maxValue, initialValue int64) *Bar {
	return &Bar{
		message:      message,
		maxValue:     maxValue,
		currentValue: initialValue,
	}
}

func (b *Bar) Set(value int64) {
	if value >= b.maxValue {
		value = b.maxValue
	}

	b.currentValue = value
}

func (b *Bar) percent() float64 {
	if b.maxValue > 0 {
		return float64(b.currentValue) / float64(b.maxValue) * 100
	}

	return 0
}

func (b *Bar) String() string {
	termWidth, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil {
		termWidth = defaultTermWidth
	}

	var pre, suf strings.Builder

	if b.message != "" {
		fmt.Fprintf(&pre, "%s ", strings.TrimSpace(b.message))
	}
	fmt.Fprintf(&pre, "%3.0f%% ", math.Floor(b.percent()))

	fmt.Fprintf(&suf, " (%s/%s)", format.HumanBytes(b.currentValue), format.HumanBytes(b.maxValue))

	// 2 boundary characters and 1 trailing space
	f := termWidth - pre.Len() - suf.Len() - 3

	var mid strings.Builder
	if f > 0 {
		n := int(float64(f) * b.percent() / 100)
		mid.WriteString("▕")
		mid.WriteString(strings.Repeat("█", n))
		if f-n > 0 {
			mid.WriteString(strings.Repeat(" ", f-n))
		}
		mid.WriteString("▏")
	}

	return pre.String() + mid.String() + suf.String()
}
