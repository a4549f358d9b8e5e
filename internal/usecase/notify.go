package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"K10PlusExport/internal/domain"
)

var ligatures = strings.NewReplacer(
	"ß", "ss", "Æ", "AE", "æ", "ae", "Œ", "OE", "œ", "oe",
	"Ø", "O", "ø", "o", "Ł", "L", "ł", "l", "Đ", "D", "đ", "d",
	"„", "\"", "“", "\"", "”", "\"", "‚", "'", "‘", "'", "’", "'",
	"–", "-", "—", "-", "…", "...",
)

// foldASCII transliterates message to ASCII. Characters without a plain
// equivalent become '?'.
func foldASCII(message string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if r > unicode.MaxASCII {
				return '?'
			}
			return r
		}),
	)
	folded, _, err := transform.String(t, ligatures.Replace(message))
	if err != nil {
		return message
	}
	return folded
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, message string) {
	if p.notifier == nil || message == "" {
		return
	}
	if err := p.notifier.Publish(ctx, foldASCII(message)); err != nil {
		logger.Warn("notification failed", "error", err)
	}
}

func depositSummaryMessage(report domain.BatchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "K10plus deposit %s (%s): %d registered, %d failed",
		journalLabel(report.Journal), report.JobID, report.Succeeded(), len(report.Failed()))
	for _, outcome := range report.Failed() {
		fmt.Fprintf(&b, "\n- article %d: %v", outcome.ArticleID, outcome.Err)
	}
	return b.String()
}

func exportFailureMessage(journal domain.Journal, err error) string {
	return fmt.Sprintf("K10plus export %s failed: %v", journalLabel(journal), err)
}

func journalLabel(journal domain.Journal) string {
	if journal.Name != "" {
		return journal.Name
	}
	return journal.Path
}
