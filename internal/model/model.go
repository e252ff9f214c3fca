package model

import "time"

type Administrator struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Student struct {
	ID            string    `json:"id"`
	StudentNumber string    `json:"studentNumber"`
	Name          string    `json:"name"`
	Gender        *string   `json:"gender"`
	Age           *int32    `json:"age"`
	Major         *string   `json:"major"`
	ClassName     *string   `json:"className"`
	Contact       *string   `json:"contact"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Course struct {
	ID          string    `json:"id"`
	CourseCode  string    `json:"courseCode"`
	Name        string    `json:"name"`
	CreditHours *int32    `json:"creditHours"`
	Teacher     *string   `json:"teacher"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Teacher struct {
	ID          string    `json:"id"`
	TeacherCode string    `json:"teacherCode"`
	Name        string    `json:"name"`
	Title       *string   `json:"title"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Department  *string   `json:"department"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
