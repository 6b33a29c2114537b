package quiz

import (
	"math"
	"sort"

	"github.com/noah-isme/pedagosys-api/internal/models"
)

// ScoreAttempt grades answers against key on a ten point scale rounded to one
// decimal. Only questions 1..total count.
func ScoreAttempt(answers, key map[int]string, total int) float64 {
	if total <= 0 {
		return 0
	}
	correct := 0
	for i := 1; i <= total; i++ {
		expected, ok := key[i]
		if !ok {
			continue
		}
		if got, answered := answers[i]; answered && got == expected {
			correct++
		}
	}
	return round1(float64(correct) / float64(total) * 10)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// BuildLeaderboard sums each student's scores over auto-authored assignments
// and orders the result by total, highest first. Ties keep encounter order.
func BuildLeaderboard(assignments []models.Assignment) []models.LeaderboardEntry {
	index := make(map[string]int)
	entries := make([]models.LeaderboardEntry, 0)
	for _, assignment := range assignments {
		if !assignment.IsAutoAuthored() {
			continue
		}
		for _, sub := range assignment.Submissions {
			pos, ok := index[sub.StudentID]
			if !ok {
				pos = len(entries)
				index[sub.StudentID] = pos
				entries = append(entries, models.LeaderboardEntry{
					StudentID:     sub.StudentID,
					StudentName:   sub.StudentName,
					StudentAvatar: sub.StudentAvatar,
				})
			}
			if sub.Score != nil {
				entries[pos].TotalScore += *sub.Score
			}
		}
	}
	for i := range entries {
		entries[i].TotalScore = round1(entries[i].TotalScore)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	return entries
}
