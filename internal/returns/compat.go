package returns

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarpraslab/peminjaman-backend/pkg/db/models"
	"github.com/sarpraslab/peminjaman-backend/pkg/enums"
)

// Split is how the units of a loan came back.
type Split struct {
	Good    int `json:"good"`
	Damaged int `json:"damaged"`
	Lost    int `json:"lost"`
}

func (s Split) Total() int { return s.Good + s.Damaged + s.Lost }

// HasLoss reports whether any unit came back damaged or not at all.
func (s Split) HasLoss() bool { return s.Damaged > 0 || s.Lost > 0 }

// Headline is the single condition tag kept alongside the split: the worst
// condition present.
func (s Split) Headline() enums.ReturnCondition {
	switch {
	case s.Lost > 0:
		return enums.ConditionLost
	case s.Damaged > 0:
		return enums.ConditionDamaged
	}
	return enums.ConditionGood
}

// Describe renders "3 good, 1 damaged", skipping zero parts.
func (s Split) Describe() string {
	var parts []string
	if s.Good > 0 {
		parts = append(parts, fmt.Sprintf("%d good", s.Good))
	}
	if s.Damaged > 0 {
		parts = append(parts, fmt.Sprintf("%d damaged", s.Damaged))
	}
	if s.Lost > 0 {
		parts = append(parts, fmt.Sprintf("%d lost", s.Lost))
	}
	return strings.Join(parts, ", ")
}

func splitOf(n int, c enums.ReturnCondition) Split {
	switch c {
	case enums.ConditionDamaged:
		return Split{Damaged: n}
	case enums.ConditionLost:
		return Split{Lost: n}
	}
	return Split{Good: n}
}

// Record is a return's reconciliation data regardless of how the row stores it.
type Record struct {
	Split      Split
	Notes      string
	FineReason string
	Paid       bool
	// Legacy is set when the split was decoded from the annotation rather
	// than read from columns.
	Legacy bool
}

var (
	splitTag  = regexp.MustCompile(`\[Detail Kondisi: Baik: (\d+), Rusak: (\d+), Hilang: (\d+)\]`)
	reasonTag = regexp.MustCompile(`\[Alasan Denda:\s*(.+?)\]`)
	paidTag   = regexp.MustCompile(`(?i)\[Status Pembayaran:\s*Lunas\]`)
	anyTag    = regexp.MustCompile(`\[(?:Detail Kondisi|Alasan Denda|Status Pembayaran):[^\]]*\]`)
)

// Resolve is the one place legacy annotations are read. Rows with split
// columns are returned as stored. Older rows carry the split, fine reason and
// paid marker as bracketed tags inside notes; when the split tag is missing
// or does not sum to loanQty, every unit is assumed to share the headline
// condition.
func Resolve(ret *models.Return, loanQty int) Record {
	notes := ""
	if ret.Notes != nil {
		notes = *ret.Notes
	}
	columnReason := ""
	if ret.FineReason != nil {
		columnReason = strings.TrimSpace(*ret.FineReason)
	}

	if ret.HasSplit() {
		return Record{
			Split:      Split{Good: *ret.GoodCount, Damaged: *ret.DamagedCount, Lost: *ret.LostCount},
			Notes:      strings.TrimSpace(notes),
			FineReason: columnReason,
			Paid:       ret.FinePaidAt != nil,
		}
	}

	rec := Record{Legacy: true, Paid: ret.FinePaidAt != nil || paidTag.MatchString(notes)}
	// a split tag that does not add up to the loan is ignored
	if m := splitTag.FindStringSubmatch(notes); m != nil {
		rec.Split = Split{Good: atoi(m[1]), Damaged: atoi(m[2]), Lost: atoi(m[3])}
	}
	if rec.Split.Total() != loanQty {
		headline, err := enums.ParseReturnCondition(string(ret.Condition))
		if err != nil {
			headline = enums.ConditionGood
		}
		rec.Split = splitOf(loanQty, headline)
	}
	rec.FineReason = columnReason
	if rec.FineReason == "" {
		if m := reasonTag.FindStringSubmatch(notes); m != nil {
			rec.FineReason = strings.TrimSpace(m[1])
		}
	}
	rec.Notes = strings.TrimSpace(anyTag.ReplaceAllString(notes, ""))
	return rec
}

// Annotate renders a record in the bracketed-tag format older clients parse
// out of the notes field.
func Annotate(rec Record) string {
	parts := make([]string, 0, 4)
	if notes := strings.TrimSpace(rec.Notes); notes != "" {
		parts = append(parts, notes)
	}
	parts = append(parts, fmt.Sprintf("[Detail Kondisi: Baik: %d, Rusak: %d, Hilang: %d]",
		rec.Split.Good, rec.Split.Damaged, rec.Split.Lost))
	if reason := strings.TrimSpace(rec.FineReason); reason != "" {
		parts = append(parts, "[Alasan Denda: "+strings.ReplaceAll(reason, "]", ")")+"]")
	}
	if rec.Paid {
		parts = append(parts, "[Status Pembayaran: Lunas]")
	}
	return strings.Join(parts, "\n\n")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
