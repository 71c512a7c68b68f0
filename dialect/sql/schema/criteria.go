package schema

import (
	"fmt"
	"maps"
)

// Criteria is the dialect-neutral description of a query: filter, joins,
// grouping, ordering and pagination. Named parameters are referenced as
// :name in the fragments and their values live in Params.
//
// The zero value is usable; Select defaults to "*" and Alias to "t".
type Criteria struct {
	Select    string
	Distinct  bool
	Alias     string
	Condition string
	Params    map[string]any
	Join      string
	Group     string
	Having    string
	Order     string
	// Limit and Offset are nil when absent. Values <= 0 are treated as
	// absent by the command builder.
	Limit  *int
	Offset *int
}

// NewCriteria returns a criteria selecting every column.
func NewCriteria() *Criteria {
	return &Criteria{Select: "*", Alias: "t", Params: make(map[string]any)}
}

// Where sets the condition. kv holds name/value pairs of the parameters
// it references.
func (c *Criteria) Where(condition string, kv ...any) *Criteria {
	c.Condition = condition
	return c.bindPairs(kv)
}

// AddCondition appends a condition with the given operator ("AND" when
// empty).
func (c *Criteria) AddCondition(condition, operator string) *Criteria {
	switch {
	case condition == "":
	case c.Condition == "":
		c.Condition = condition
	default:
		if operator == "" {
			operator = "AND"
		}
		c.Condition = fmt.Sprintf("(%s) %s (%s)", c.Condition, operator, condition)
	}
	return c
}

// MergeParams copies params into the criteria parameters.
func (c *Criteria) MergeParams(params map[string]any) *Criteria {
	if c.Params == nil {
		c.Params = make(map[string]any, len(params))
	}
	maps.Copy(c.Params, params)
	return c
}

// Param sets a single parameter.
func (c *Criteria) Param(name string, value any) *Criteria {
	return c.MergeParams(map[string]any{name: value})
}

// WithSelect sets the select list.
func (c *Criteria) WithSelect(sel string) *Criteria {
	c.Select = sel
	return c
}

// WithDistinct sets SELECT DISTINCT.
func (c *Criteria) WithDistinct() *Criteria {
	c.Distinct = true
	return c
}

// WithAlias sets the table alias.
func (c *Criteria) WithAlias(alias string) *Criteria {
	c.Alias = alias
	return c
}

// WithJoin sets the join clauses.
func (c *Criteria) WithJoin(join string) *Criteria {
	c.Join = join
	return c
}

// GroupBy sets the GROUP BY clause.
func (c *Criteria) GroupBy(group string) *Criteria {
	c.Group = group
	return c
}

// WithHaving sets the HAVING clause.
func (c *Criteria) WithHaving(having string, kv ...any) *Criteria {
	c.Having = having
	return c.bindPairs(kv)
}

// OrderBy sets the ORDER BY clause.
func (c *Criteria) OrderBy(order string) *Criteria {
	c.Order = order
	return c
}

// WithLimit sets the maximum number of rows.
func (c *Criteria) WithLimit(n int) *Criteria {
	c.Limit = &n
	return c
}

// WithOffset sets the number of rows to skip.
func (c *Criteria) WithOffset(n int) *Criteria {
	c.Offset = &n
	return c
}

// Clone returns a deep copy of the criteria. A nil criteria clones to
// NewCriteria().
func (c *Criteria) Clone() *Criteria {
	if c == nil {
		return NewCriteria()
	}
	cc := *c
	cc.Params = maps.Clone(c.Params)
	if cc.Params == nil {
		cc.Params = make(map[string]any)
	}
	if c.Limit != nil {
		cc.Limit = intp(*c.Limit)
	}
	if c.Offset != nil {
		cc.Offset = intp(*c.Offset)
	}
	return &cc
}

// limit returns the limit, 0 when absent.
func (c *Criteria) limit() int {
	if c.Limit == nil || *c.Limit < 0 {
		return 0
	}
	return *c.Limit
}

// offset returns the offset, 0 when absent.
func (c *Criteria) offset() int {
	if c.Offset == nil || *c.Offset < 0 {
		return 0
	}
	return *c.Offset
}

func (c *Criteria) selectList() string {
	if c.Select == "" {
		return "*"
	}
	return c.Select
}

func (c *Criteria) alias() string {
	if c.Alias == "" {
		return "t"
	}
	return c.Alias
}

func (c *Criteria) bindPairs(kv []any) *Criteria {
	if len(kv) == 0 {
		return c
	}
	if c.Params == nil {
		c.Params = make(map[string]any, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		c.Params[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return c
}
