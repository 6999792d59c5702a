package domain

import (
	"fmt"
	"strings"
)

// RawIDSuffixLen is how many trailing characters of the raw broker position
// id become the code when neither a magic tag nor a comment is available.
const RawIDSuffixLen = 8

// DeriveCode builds the stable logical key used to correlate a position
// across polls and push events. The broker-assigned magic tag wins, then the
// order comment, then the trailing digits of the raw id. Returns "" when no
// identifying field is present; such entries are untrackable.
//
// Known limitation: two concurrently open untagged positions whose raw ids
// share the same trailing digits alias to one code.
func DeriveCode(magic, comment, rawID string) string {
	if magic != "" && magic != "0" {
		return magic
	}
	if comment != "" {
		return comment
	}
	if len(rawID) > RawIDSuffixLen {
		return rawID[len(rawID)-RawIDSuffixLen:]
	}
	return rawID
}

// Correlates reports whether this deal refers to the position identified by
// code. The push stream carries full raw ids while codes may be a truncated
// suffix, so a trailing match counts.
func (d *DealEvent) Correlates(code string) bool {
	if code == "" {
		return false
	}
	return d.PositionID == code || strings.HasSuffix(d.PositionID, code)
}

// DedupKey identifies the underlying broker deal so repeated delivery of the
// same event is a no-op.
func (d *DealEvent) DedupKey() string {
	return fmt.Sprintf("deal_closed-%s-%d", d.SourceID, d.ReportedAt.UnixMilli())
}
