package models

import (
	"math"

	"github.com/google/uuid"

	catalog "certus/internal/catalog/models"
	id "certus/pkg/domain"
)

// Grading is the outcome of Grade.
type Grading struct {
	Answers []ExamAnswer
	Correct int
	Total   int
	Score   float64
	Passed  bool
}

// Grade scores answers against questions. Every answer's question must be
// present in questions; callers validate membership first. Score is
// 100*correct/total rounded to two decimals and passes when it meets
// passingScore.
func Grade(examID id.ExamID, answers []Answer, questions map[id.QuestionID]catalog.Question, passingScore float64) Grading {
	g := Grading{
		Answers: make([]ExamAnswer, 0, len(answers)),
		Total:   len(answers),
	}
	for _, a := range answers {
		q := questions[a.QuestionID]
		correct := a.UserAnswer == q.Answer
		if correct {
			g.Correct++
		}
		g.Answers = append(g.Answers, ExamAnswer{
			ID:         id.ExamAnswerID(uuid.New()),
			ExamID:     examID,
			QuestionID: a.QuestionID,
			UserAnswer: a.UserAnswer,
			IsCorrect:  correct,
		})
	}
	g.Score = ScorePercent(g.Correct, g.Total)
	g.Passed = g.Score >= passingScore
	return g
}

// ScorePercent returns 100*correct/total rounded half away from zero to two
// decimals; zero total scores zero.
func ScorePercent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(100 * float64(correct) / float64(total))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
