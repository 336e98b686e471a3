package repository

import (
	"strings"

	"gorm.io/gorm/clause"
)

// Where is a composable query filter. The zero value matches everything.
type Where struct {
	expr clause.Expression
}

func column(field string) clause.Column {
	return clause.Column{Name: field}
}

// Eq matches rows whose field equals v.
func Eq(field string, v any) Where {
	return Where{expr: clause.Eq{Column: column(field), Value: v}}
}

// Lt matches rows whose field is strictly less than v.
func Lt(field string, v any) Where {
	return Where{expr: clause.Lt{Column: column(field), Value: v}}
}

// Gt matches rows whose field is strictly greater than v.
func Gt(field string, v any) Where {
	return Where{expr: clause.Gt{Column: column(field), Value: v}}
}

// Contains matches rows whose text field contains substr.
func Contains(field, substr string) Where {
	return Where{expr: clause.Like{Column: column(field), Value: "%" + substr + "%"}}
}

// And matches rows satisfying every filter. Zero filters are skipped.
func And(ws ...Where) Where {
	return combine(ws, func(exprs []clause.Expression) clause.Expression { return clause.And(exprs...) })
}

// Or matches rows satisfying at least one filter. Zero filters are skipped.
func Or(ws ...Where) Where {
	return combine(ws, func(exprs []clause.Expression) clause.Expression { return clause.Or(exprs...) })
}

func combine(ws []Where, join func([]clause.Expression) clause.Expression) Where {
	exprs := make([]clause.Expression, 0, len(ws))
	for _, w := range ws {
		if !w.IsZero() {
			exprs = append(exprs, w.expr)
		}
	}
	switch len(exprs) {
	case 0:
		return Where{}
	case 1:
		return Where{expr: exprs[0]}
	default:
		return Where{expr: join(exprs)}
	}
}

// IsZero reports whether the filter matches everything.
func (w Where) IsZero() bool {
	return w.expr == nil
}

func (w Where) clause() clause.Where {
	if w.expr == nil {
		return clause.Where{}
	}
	return clause.Where{Exprs: []clause.Expression{w.expr}}
}

// FindOptions shape a Find call.
type FindOptions struct {
	// Limit caps the number of rows; zero means no limit.
	Limit int
	// Sort is a column name, prefixed with "-" for descending order.
	Sort string
	// Preload lists associations to resolve into embedded documents.
	Preload []string
}

func (o FindOptions) order() (clause.OrderByColumn, bool) {
	if o.Sort == "" {
		return clause.OrderByColumn{}, false
	}
	name, desc := strings.CutPrefix(o.Sort, "-")
	return clause.OrderByColumn{Column: column(name), Desc: desc}, true
}
