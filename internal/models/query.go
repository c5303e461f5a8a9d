package models

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrBadFilterCombination — неравенства по нескольким полям
	// или сортировка по полю, отличному от поля неравенства.
	ErrBadFilterCombination = errors.New("bad filter combination")
	// ErrInvalidFilter — неизвестное поле/оператор или некорректное значение.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Field — поле конференции, доступное для фильтрации и сортировки.
type Field string

const (
	FieldName           Field = "NAME"
	FieldCity           Field = "CITY"
	FieldTopic          Field = "TOPIC"
	FieldMonth          Field = "MONTH"
	FieldMaxAttendees   Field = "MAX_ATTENDEES"
	FieldSeatsAvailable Field = "SEATS_AVAILABLE"
)

// Operator — оператор сравнения фильтра.
type Operator string

const (
	OpEQ   Operator = "EQ"
	OpLT   Operator = "LT"
	OpGT   Operator = "GT"
	OpLTEQ Operator = "LTEQ"
	OpGTEQ Operator = "GTEQ"
	OpNE   Operator = "NE"
)

// IsInequality — всё, кроме EQ.
func (o Operator) IsInequality() bool {
	switch o {
	case OpLT, OpGT, OpLTEQ, OpGTEQ, OpNE:
		return true
	default:
		return false
	}
}

func (o Operator) valid() bool {
	return o == OpEQ || o.IsInequality()
}

// Numeric — поле сравнивается как число (Filter.Number).
func (f Field) Numeric() bool {
	return f == FieldMonth || f == FieldMaxAttendees || f == FieldSeatsAvailable
}

func (f Field) filterable() bool {
	switch f {
	case FieldCity, FieldTopic, FieldMonth, FieldMaxAttendees, FieldSeatsAvailable:
		return true
	default:
		return false
	}
}

func (f Field) orderable() bool {
	return f == FieldName || (f.filterable() && f != FieldTopic)
}

// Filter — одно условие запроса.
// Number заполняется в Normalize для числовых полей.
type Filter struct {
	Field    Field
	Operator Operator
	Value    string
	Number   int
}

// ConferenceQuery — фильтры плюс единственное поле сортировки (по возрастанию).
type ConferenceQuery struct {
	Filters []Filter
	OrderBy Field
}

// Normalize проверяет запрос и возвращает его каноническую форму.
//
// Правила:
//   - неравенства допустимы только по одному полю;
//   - если неравенство есть, сортировка должна быть по этому же полю
//     (пустая сортировка подставляется им);
//   - без неравенств пустая сортировка = NAME;
//   - TOPIC поддерживает только EQ (членство в списке тем).
func (q ConferenceQuery) Normalize() (ConferenceQuery, error) {
	out := ConferenceQuery{
		Filters: make([]Filter, 0, len(q.Filters)),
		OrderBy: Field(strings.ToUpper(string(q.OrderBy))),
	}

	var inequality Field
	for _, f := range q.Filters {
		f.Field = Field(strings.ToUpper(string(f.Field)))
		f.Operator = Operator(strings.ToUpper(string(f.Operator)))

		if !f.Field.filterable() {
			return ConferenceQuery{}, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, f.Field)
		}
		if !f.Operator.valid() {
			return ConferenceQuery{}, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Operator)
		}
		if f.Field == FieldTopic && f.Operator != OpEQ {
			return ConferenceQuery{}, fmt.Errorf("%w: %s supports only EQ", ErrInvalidFilter, FieldTopic)
		}

		if f.Field.Numeric() {
			n, err := strconv.Atoi(strings.TrimSpace(f.Value))
			if err != nil {
				return ConferenceQuery{}, fmt.Errorf("%w: %s expects an integer, got %q", ErrInvalidFilter, f.Field, f.Value)
			}
			f.Number = n
		}

		if f.Operator.IsInequality() {
			if inequality != "" && inequality != f.Field {
				return ConferenceQuery{}, fmt.Errorf("%w: inequality filters on %s and %s", ErrBadFilterCombination, inequality, f.Field)
			}
			inequality = f.Field
		}

		out.Filters = append(out.Filters, f)
	}

	switch {
	case out.OrderBy == "" && inequality != "":
		out.OrderBy = inequality
	case out.OrderBy == "":
		out.OrderBy = FieldName
	case !out.OrderBy.orderable():
		return ConferenceQuery{}, fmt.Errorf("%w: cannot order by %q", ErrInvalidFilter, out.OrderBy)
	case inequality != "" && out.OrderBy != inequality:
		return ConferenceQuery{}, fmt.Errorf("%w: order by %s with inequality on %s", ErrBadFilterCombination, out.OrderBy, inequality)
	}

	return out, nil
}

// Matches проверяет конференцию против всех фильтров нормализованного запроса.
func (q ConferenceQuery) Matches(c *Conference) bool {
	for _, f := range q.Filters {
		if !f.matches(c) {
			return false
		}
	}

	return true
}

func (f Filter) matches(c *Conference) bool {
	switch f.Field {
	case FieldTopic:
		return c.HasTopic(f.Value)
	case FieldCity:
		return compare(f.Operator, strings.Compare(c.City, f.Value))
	case FieldMonth:
		return compare(f.Operator, cmp.Compare(c.Month, f.Number))
	case FieldMaxAttendees:
		return compare(f.Operator, cmp.Compare(c.MaxAttendees, f.Number))
	case FieldSeatsAvailable:
		return compare(f.Operator, cmp.Compare(c.SeatsAvailable, f.Number))
	default:
		return false
	}
}

func compare(op Operator, r int) bool {
	switch op {
	case OpEQ:
		return r == 0
	case OpNE:
		return r != 0
	case OpLT:
		return r < 0
	case OpLTEQ:
		return r <= 0
	case OpGT:
		return r > 0
	case OpGTEQ:
		return r >= 0
	default:
		return false
	}
}

// Compare задаёт порядок выдачи: поле OrderBy по возрастанию,
// затем имя, затем ключ (владелец, id).
func (q ConferenceQuery) Compare(a, b *Conference) int {
	var r int
	switch q.OrderBy {
	case FieldCity:
		r = strings.Compare(a.City, b.City)
	case FieldMonth:
		r = cmp.Compare(a.Month, b.Month)
	case FieldMaxAttendees:
		r = cmp.Compare(a.MaxAttendees, b.MaxAttendees)
	case FieldSeatsAvailable:
		r = cmp.Compare(a.SeatsAvailable, b.SeatsAvailable)
	}

	return cmp.Or(
		r,
		strings.Compare(a.Name, b.Name),
		strings.Compare(a.Key.OwnerID, b.Key.OwnerID),
		cmp.Compare(a.Key.ID, b.Key.ID),
	)
}
