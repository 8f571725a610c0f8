package aarp

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/futureroot-service/internal/domain"
)

const incomeLabel = "Median Household Income:"

// The scoring page renders each category as a group of three numeric SVG text
// nodes; the category score is the first of each group starting at index 5.
const (
	firstScoreIndex = 5
	scoreStride     = 3
)

// ParseScores extracts the category scores and median income from a rendered
// livability page. Scores are returned as raw numeric text in LivabilityMetrics order.
func ParseScores(zip, html string) (domain.LivabilityScores, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.LivabilityScores{}, fmt.Errorf("parse livability page %s: %w", zip, err)
	}

	var numbers []string
	doc.Find("svg text").Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.Text()); isDigits(v) {
			numbers = append(numbers, v)
		}
	})

	out := domain.LivabilityScores{ZIP: zip, Scores: make(map[domain.MetricField]string)}
	for i, m := 0, firstScoreIndex; m < len(numbers) && i < len(domain.LivabilityMetrics); i, m = i+1, m+scoreStride {
		out.Scores[domain.LivabilityMetrics[i]] = numbers[m]
	}
	if len(out.Scores) == 0 {
		return out, fmt.Errorf("livability page %s: %w: no scores rendered", zip, domain.ErrInsufficientData)
	}

	doc.Find("li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, incomeLabel) {
			return true
		}
		out.Income = strings.TrimSpace(strings.Replace(text, incomeLabel, "", 1))
		return false
	})
	return out, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
