package solver

import (
	"fmt"
	"strings"
)

const NoSolution = "Решение не найдено"

var markdownEscaper = strings.NewReplacer(`*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`)

// EscapeMarkdown escapes the characters Telegram's legacy Markdown treats
// as markup.
func EscapeMarkdown(s string) string { return markdownEscaper.Replace(s) }

// FormatSolution renders verified steps for the chat. Verification details
// are listed only for steps that failed.
func FormatSolution(steps []VerifiedStep) string {
	if len(steps) == 0 {
		return NoSolution
	}
	var b strings.Builder
	b.WriteString("📝 Решение:\n\n")
	for i, vs := range steps {
		fmt.Fprintf(&b, "🔹 Шаг %d:\n", i+1)
		s := vs.Step
		if s == nil {
			s = &Step{}
		}
		if s.Explanation != "" {
			fmt.Fprintf(&b, "📊 Объяснение: %s\n", EscapeMarkdown(s.Explanation))
		}
		if s.Calculation != "" {
			fmt.Fprintf(&b, "📌 Вычисления: %s\n", EscapeMarkdown(s.Calculation))
		}
		if vs.IsCorrect {
			b.WriteString("✅ Шаг проверен и корректен\n")
		} else {
			b.WriteString("⚠️ Шаг требует проверки\n")
			if len(s.VerificationDetails) > 0 {
				b.WriteString("🔍 Детали проверки:\n")
				for _, d := range s.VerificationDetails {
					fmt.Fprintf(&b, "  • %s: %s\n", EscapeMarkdown(d.Category), EscapeMarkdown(d.Note))
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatRaw escapes an unparsed answer.
func FormatRaw(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoSolution
	}
	return EscapeMarkdown(s)
}
