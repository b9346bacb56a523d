package models

import "time"

// Course — учебный курс. OwnerID равен nil, если владелец удалил учётную запись.
type Course struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Preview     *string   `json:"preview"`
	Description *string   `json:"description"`
	OwnerID     *int64    `json:"owner"`
	LastUpdate  time.Time `json:"last_update"`
	CreatedAt   time.Time `json:"created_at"`
}

// CourseView — представление курса для конкретного пользователя:
// число уроков, признак подписки и вложенные уроки.
type CourseView struct {
	Course
	LessonCount int       `json:"lesson_count"`
	Subscribed  bool      `json:"subscription"`
	Lessons     []*Lesson `json:"lesson"`
}

// CourseStat — вычисляемые для конкретного пользователя поля курса.
type CourseStat struct {
	LessonCount int
	Subscribed  bool
}

// Lesson — урок, всегда принадлежит ровно одному курсу.
type Lesson struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Preview     *string `json:"preview"`
	Video       string  `json:"video"`
	CourseID    int64   `json:"course"`
	OwnerID     *int64  `json:"owner"`
}

// DummyCourse используется для приёма данных курса из JSON-запроса.
type DummyCourse struct {
	Name        string  `json:"name" validate:"required,max=50"`
	Description *string `json:"description" validate:"omitempty"`
}

// CoursePatch — частичное обновление курса.
type CoursePatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty"`
}

// Empty сообщает, что патч не содержит изменений.
func (p CoursePatch) Empty() bool {
	return p.Name == nil && p.Description == nil
}

// DummyLesson используется для приёма данных урока из JSON-запроса.
type DummyLesson struct {
	Name        string  `json:"name" validate:"required,max=50"`
	Description *string `json:"description" validate:"omitempty"`
	Video       string  `json:"video" validate:"required,max=300,youtube"`
	CourseID    int64   `json:"course" validate:"required,gt=0"`
}

// LessonPatch — частичное обновление урока.
type LessonPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=50"`
	Description *string `json:"description" validate:"omitempty"`
	Video       *string `json:"video" validate:"omitempty,max=300,youtube"`
}

// Empty сообщает, что патч не содержит изменений.
func (p LessonPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Video == nil
}

// Page — параметры пагинации списков.
type Page struct {
	Limit  int
	Offset int
}

// CourseUpdatedTask — полезная нагрузка задачи уведомления об обновлении курса.
type CourseUpdatedTask struct {
	CourseID    int64     `json:"course_id"`
	PriorUpdate time.Time `json:"prior_update"`
}
