// Package domain models per-ZIP quality-of-life and childcare-cost data.
//
// # Location records
//
// A LocationRecord is keyed by a 5-digit ZIP code. Every field is independently
// nullable: each one is written by a different enrichment job, at a different
// time, from a different source. No field implies another is present. Records
// are created by the first job that writes any field (upsert-by-ZIP) and are
// never deleted.
//
// # Source conventions
//
// Census ACS extracts identify ZIP Code Tabulation Areas in the NAME column:
//
//	"ZCTA5 11021"  →  ZIP "11021"
//
// Business listings carry free-text addresses. The ZIP join key and the town
// are derived best-effort from that text:
//
//	"123 Main St, Springfield, NY 11021"  →  town "Springfield", ZIP "11021"
//
// Failure to derive either one is reported as [ErrUnresolvedZIP] or
// [ErrUnresolvedTown]; callers skip the record instead of joining on an empty key.
//
// # Grade vocabularies
//
// Two letter-grade ladders coexist:
//
//	Commute (11 tiers):    A+ A A- B+ B B- C+ C C- D F
//	Livability (8 tiers):  A+ A B- C+ C C- D F
//
// Commute grades come from a normalized 0–100 score with closed-below
// thresholds (≥90 A+, ≥85 A, ... ≥40 D, else F). Livability grades come from
// the 0–100 AARP index, truncated to an integer first (≥75 A+, ≥65 A, ≥57 B-,
// ≥47 C+, ≥40 C, ≥35 C-, ≥25 D, else F). Unicode minus signs in source data
// ("A−") are normalized to ASCII ("A-") by [ParseGrade].
//
// Ranking converts grades to integers with [RankValue]:
//
//	A+ 8 | A 7 | A- 6 | B+ 5 | B 5 | B- 4 | C+ 3 | C 3 | C- 2 | D 1 | F 0 | missing -1
//
// # Derived metrics
//
//	Childcare estimate:  1200 × income / 70000, rounded to cents; 1200 when income ≤ 0.
//	Tax rate:            Σ(countᵢ × midpointᵢ) / Σcountᵢ / homeValue × 100.
//	Commute burden:      Σ(bucketᵢ × weightᵢ) / max(1, commuters).
//	Distance:            haversine on a 3959-mile Earth radius.
package domain
