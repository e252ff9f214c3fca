package patch

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"registrar/internal/apperr"
)

type samplePayload struct {
	Code  Value `json:"code"`
	Name  Value `json:"name"`
	Age   Value `json:"age"`
	Email Value `json:"email"`
	Phone Value `json:"phone"`
}

func (p samplePayload) fields() []Field {
	return []Field{
		Text("code", "Code", p.Code).Required(),
		Text("name", "Name", p.Name).Required(),
		Integer("age", "Age", p.Age, 0, 120),
		Text("email", "Email", p.Email).Check(EmailFormat("Email format is invalid.")),
		Text("phone", "Phone", p.Phone).Check(MaxLength(20, "Phone number is too long.")),
	}
}

func decode(t *testing.T, body string) samplePayload {
	t.Helper()
	var p samplePayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return p
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	return appErr.Message
}

func TestValueTriState(t *testing.T) {
	p := decode(t, `{"name": null, "code": "  A1 "}`)
	if p.Age.Set {
		t.Fatalf("expected absent age")
	}
	if !p.Name.Set || !p.Name.Null {
		t.Fatalf("expected explicit null name")
	}
	if !p.Code.Set || p.Code.Null || string(p.Code.Raw) != `"  A1 "` {
		t.Fatalf("expected raw code, got %s", p.Code.Raw)
	}
}

func TestResolveCreate(t *testing.T) {
	p := decode(t, `{"code": " 2023001 ", "name": "张伟", "age": "20", "email": "", "phone": null}`)
	got, err := ResolveCreate(p.fields(), "Code and name are required.")
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	want := []Assignment{
		{Column: "code", Value: "2023001"},
		{Column: "name", Value: "张伟"},
		{Column: "age", Value: 20},
		{Column: "email", Value: nil},
		{Column: "phone", Value: nil},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestResolveCreateRequired(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"code": "A1"}`,
		`{"code": "   ", "name": "x"}`,
		`{"code": null, "name": "x"}`,
	} {
		_, err := ResolveCreate(decode(t, body).fields(), "Code and name are required.")
		if msg := validationMessage(t, err); msg != "Code and name are required." {
			t.Fatalf("%s: unexpected message %q", body, msg)
		}
	}
}

func TestResolveUpdate(t *testing.T) {
	p := decode(t, `{"name": "  Li  ", "email": "", "age": null}`)
	got, err := ResolveUpdate(p.fields())
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	want := []Assignment{
		{Column: "name", Value: "Li"},
		{Column: "age", Value: nil},
		{Column: "email", Value: nil},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestResolveUpdateErrors(t *testing.T) {
	cases := map[string]string{
		`{}`:                                 "No valid fields provided for update.",
		`{"name": ""}`:                       "Name cannot be empty.",
		`{"name": null}`:                     "Name cannot be empty.",
		`{"code": "  "}`:                     "Code cannot be empty.",
		`{"age": -1}`:                        "Age must be between 0 and 120.",
		`{"age": 150}`:                       "Age must be between 0 and 120.",
		`{"age": "abc"}`:                     "Age must be a valid number.",
		`{"age": true}`:                      "Age must be a valid number.",
		`{"age": "Infinity"}`:                "Age must be a valid number.",
		`{"age": "0x10"}`:                    "Age must be a valid number.",
		`{"age": ".5"}`:                      "Age must be a valid number.",
		`{"age": "7 years"}`:                 "Age must be a valid number.",
		`{"email": "bad@mail"}`:              "Email format is invalid.",
		`{"phone": "123456789012345678901"}`: "Phone number is too long.",
		`{"name": {"x": 1}}`:                 "Name must be a string.",
	}
	for body, want := range cases {
		_, err := ResolveUpdate(decode(t, body).fields())
		if msg := validationMessage(t, err); msg != want {
			t.Fatalf("%s: expected %q, got %q", body, want, msg)
		}
	}
}

func TestIntegerParsing(t *testing.T) {
	cases := map[string]any{
		`{"age": 0}`:      0,
		`{"age": 120}`:    120,
		`{"age": "42"}`:   42,
		`{"age": 19.9}`:   19,
		`{"age": "-0.5"}`: 0,
		`{"age": "  "}`:   nil,
		`{"age": ""}`:     nil,
		`{"age": 1.2e1}`:  12,
		`{"age": 1e2}`:    100,
		`{"age": "1e2"}`:  1,
		`{"age": "19.9"}`: 19,
		`{"age": "+7"}`:   7,
	}
	for body, want := range cases {
		got, err := ResolveUpdate(decode(t, body).fields())
		if err != nil {
			t.Fatalf("%s: resolve error: %v", body, err)
		}
		if got[0].Value != want {
			t.Fatalf("%s: expected %v, got %v", body, want, got[0].Value)
		}
	}
}

func TestNumberAsText(t *testing.T) {
	got, err := ResolveUpdate(decode(t, `{"code": 2023004}`).fields())
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if got[0].Value != "2023004" {
		t.Fatalf("expected numeric literal as text, got %v", got[0].Value)
	}
}

func TestBuildInsert(t *testing.T) {
	table := Table{Name: "students", Returning: []string{"id", "name"}, ConflictOn: "student_number"}
	sql, args := table.BuildInsert([]Assignment{
		{Column: "student_number", Value: "2023001"},
		{Column: "name", Value: "张伟"},
		{Column: "age", Value: nil},
	})
	wantSQL := "INSERT INTO students (student_number, name, age) VALUES ($1, $2, $3) ON CONFLICT (student_number) DO NOTHING RETURNING id, name"
	if sql != wantSQL {
		t.Fatalf("unexpected sql:\n%s", sql)
	}
	if !reflect.DeepEqual(args, []any{"2023001", "张伟", nil}) {
		t.Fatalf("unexpected args %#v", args)
	}
}

func TestBuildUpdate(t *testing.T) {
	table := Table{Name: "teachers", Returning: []string{"id", "email"}}
	sql, args := table.BuildUpdate([]Assignment{
		{Column: "email", Value: nil},
		{Column: "name", Value: "Sun"},
		{Column: "phone", Value: "13400006666"},
	}, "row-id")
	wantSQL := "UPDATE teachers SET email = NULL, name = $1, phone = $2, updated_at = NOW() WHERE id = $3 RETURNING id, email"
	if sql != wantSQL {
		t.Fatalf("unexpected sql:\n%s", sql)
	}
	if !reflect.DeepEqual(args, []any{"Sun", "13400006666", "row-id"}) {
		t.Fatalf("unexpected args %#v", args)
	}
}
