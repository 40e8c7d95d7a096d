// Package ranking содержит модель рейтинга абитуриентов по средней оценке
// ревьюеров.
package ranking

import (
	"fmt"
	"sort"

	"github.com/cohort-hub/admissions/internal/domain/shared"
	"github.com/cohort-hub/admissions/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию студента в рейтинге, начиная с 1.
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// Mean - агрегат оценок одного студента.
type Mean struct {
	StudentID string
	Sum       int
	Count     int
}

// Average возвращает среднее арифметическое оценок.
func (m Mean) Average() float64 {
	if m.Count == 0 {
		return 0
	}
	return float64(m.Sum) / float64(m.Count)
}

// higher сравнивает средние точно, через перекрёстное умножение.
func (m Mean) higher(o Mean) (higher, equal bool) {
	l := m.Sum * o.Count
	r := o.Sum * m.Count
	return l > r, l == r
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY
// ══════════════════════════════════════════════════════════════════════════════

// Query - параметры выборки рейтинга.
type Query struct {
	Page  shared.Page
	Track shared.Optional[student.Track]
}

// Validate проверяет параметры.
func (q Query) Validate() error {
	if err := q.Page.Validate(); err != nil {
		return err
	}
	if t, ok := q.Track.Get(); ok && !t.IsValid() {
		return shared.ErrInvalidTrack
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна позиция рейтинга: полная запись студента и его средняя оценка.
type Entry struct {
	Rank                   Rank             `json:"rank"`
	Student                *student.Student `json:"student"`
	AverageAdmissionRating float64          `json:"average_admission_rating"`
	RatingCount            int              `json:"rating_count"`
}

// String возвращает строковое представление для логирования.
func (e *Entry) String() string {
	return fmt.Sprintf("Entry{Rank: %d, Student: %s, Avg: %.2f}", e.Rank, e.Student.Username, e.AverageAdmissionRating)
}

// ══════════════════════════════════════════════════════════════════════════════
// ORDERING
// ══════════════════════════════════════════════════════════════════════════════

// SortMeans упорядочивает агрегаты: по убыванию среднего, при равенстве по
// возрастанию StudentID. Порядок полностью детерминирован.
func SortMeans(means []Mean) {
	sort.SliceStable(means, func(i, j int) bool {
		higher, equal := means[i].higher(means[j])
		if !equal {
			return higher
		}
		return means[i].StudentID < means[j].StudentID
	})
}

// Assemble соединяет упорядоченную страницу агрегатов с записями студентов
// по ID. Порядок и ранги берутся из means; каждому агрегату должен
// соответствовать ровно один студент.
func Assemble(means []Mean, students []*student.Student, offset int) ([]*Entry, error) {
	byID := make(map[string]*student.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}

	entries := make([]*Entry, 0, len(means))
	for i, m := range means {
		s, ok := byID[m.StudentID]
		if !ok {
			return nil, shared.WrapError("ranking", "Assemble", shared.ErrNotFound,
				"rated student missing from snapshot", fmt.Errorf("student %s", m.StudentID))
		}
		entries = append(entries, &Entry{
			Rank:                   Rank(offset + i + 1),
			Student:                s,
			AverageAdmissionRating: m.Average(),
			RatingCount:            m.Count,
		})
	}
	return entries, nil
}
