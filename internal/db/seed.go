package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"registrar/internal/crypto"
)

const DefaultAdminUsername = "admin"

type SeedResult struct {
	AdminCreated bool
	Students     int64
	Courses      int64
	Teachers     int64
}

// Seed creates the default administrator when missing and fills each sample
// table only while it is still empty.
func Seed(ctx context.Context, pool *pgxpool.Pool, adminPassword string) (SeedResult, error) {
	var result SeedResult
	hash, err := crypto.HashPassword(adminPassword)
	if err != nil {
		return result, errors.Wrap(err, "hash default admin password")
	}

	err = WithTx(ctx, pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO administrators (username, password_hash)
			VALUES ($1, $2)
			ON CONFLICT (username) DO NOTHING
		`, DefaultAdminUsername, hash)
		if err != nil {
			return errors.Wrap(err, "seed administrator")
		}
		result.AdminCreated = tag.RowsAffected() == 1

		if result.Students, err = execCount(ctx, tx, seedStudents); err != nil {
			return errors.Wrap(err, "seed students")
		}
		if result.Courses, err = execCount(ctx, tx, seedCourses); err != nil {
			return errors.Wrap(err, "seed courses")
		}
		if result.Teachers, err = execCount(ctx, tx, seedTeachers); err != nil {
			return errors.Wrap(err, "seed teachers")
		}
		return nil
	})
	return result, err
}

func execCount(ctx context.Context, tx pgx.Tx, sql string) (int64, error) {
	tag, err := tx.Exec(ctx, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const seedStudents = `
	INSERT INTO students (student_number, name, gender, age, major, class_name, contact, notes)
	SELECT v.student_number, v.name, v.gender, v.age, v.major, v.class_name, v.contact, v.notes
	FROM (VALUES
		('2023001', '张伟', '男', 20, '计算机科学', '计科2301', '13800001111', '热爱编程'),
		('2023002', '李娜', '女', 19, '软件工程', '软工2302', '13900002222', '学生会成员'),
		('2023003', '王强', '男', 21, '信息管理', '信管2301', '13700003333', '喜欢篮球')
	) AS v(student_number, name, gender, age, major, class_name, contact, notes)
	WHERE NOT EXISTS (SELECT 1 FROM students)
`

const seedCourses = `
	INSERT INTO courses (course_code, name, credit_hours, teacher, description)
	SELECT v.course_code, v.name, v.credit_hours, v.teacher, v.description
	FROM (VALUES
		('CS101', '程序设计基础', 4, '赵老师', 'C 语言的基础语法与程序设计思维'),
		('CS205', '数据结构', 3, '钱老师', '线性表、树与图的结构与算法'),
		('CS310', 'Web 开发', 3, '孙老师', '前端与后端的综合实践课程')
	) AS v(course_code, name, credit_hours, teacher, description)
	WHERE NOT EXISTS (SELECT 1 FROM courses)
`

const seedTeachers = `
	INSERT INTO teachers (teacher_code, name, title, email, phone, department)
	SELECT v.teacher_code, v.name, v.title, v.email, v.phone, v.department
	FROM (VALUES
		('T001', '赵老师', '教授', 'zhao@example.com', '13600004444', '计算机学院'),
		('T002', '钱老师', '副教授', 'qian@example.com', '13500005555', '软件学院'),
		('T003', '孙老师', '讲师', 'sun@example.com', '13400006666', '信息学院')
	) AS v(teacher_code, name, title, email, phone, department)
	WHERE NOT EXISTS (SELECT 1 FROM teachers)
`
