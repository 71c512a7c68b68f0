package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Breaking indicates if this is a breaking change.
	Breaking bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// HasBreakingChanges returns true if there are any breaking changes.
func (r *ValidationResult) HasBreakingChanges() bool {
	for _, e := range r.Errors {
		if e.Breaking {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Breaking {
			return true
		}
	}
	return false
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			if e.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			if w.Breaking {
				sb.WriteString(" [BREAKING]")
			}
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures schema validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	allowDropColumn     bool
	allowDropTable      bool
	allowDropForeignKey bool
	allowNullToNotNull  bool
}

// AllowDropColumn allows dropping columns without error.
func AllowDropColumn() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropColumn = true
	}
}

// AllowDropTable allows dropping tables without error.
func AllowDropTable() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropTable = true
	}
}

// AllowDropForeignKey allows dropping foreign keys without error.
func AllowDropForeignKey() ValidateOption {
	return func(c *validateConfig) {
		c.allowDropForeignKey = true
	}
}

// AllowNullToNotNull allows changing nullable columns to not null.
func AllowNullToNotNull() ValidateOption {
	return func(c *validateConfig) {
		c.allowNullToNotNull = true
	}
}

// ValidateDiff validates the difference between two versions of a set of
// tables, e.g. the cached descriptors and a fresh load. It returns errors
// for breaking changes and warnings for potentially dangerous ones.
//
// Example:
//
//	result := schema.ValidateDiff(current, desired)
//	if result.HasBreakingChanges() {
//	    log.Fatal("Breaking changes detected:", result)
//	}
func ValidateDiff(current, desired []*Table, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	result := &ValidationResult{}
	desiredMap := make(map[string]*Table, len(desired))
	for _, t := range desired {
		desiredMap[t.Name] = t
	}
	for _, t := range current {
		d, ok := desiredMap[t.Name]
		if !ok {
			result.add(cfg.allowDropTable, &ValidationError{
				Table:    t.Name,
				Message:  "table will be dropped",
				Breaking: true,
			})
			continue
		}
		validateTableDiff(t, d, cfg, result)
	}
	return result
}

func (r *ValidationResult) add(warn bool, err *ValidationError) {
	if warn {
		r.Warnings = append(r.Warnings, err)
	} else {
		r.Errors = append(r.Errors, err)
	}
}

func validateTableDiff(current, desired *Table, cfg *validateConfig, result *ValidationResult) {
	for _, name := range current.ColumnNames {
		if !desired.HasColumn(name) {
			result.add(cfg.allowDropColumn, &ValidationError{
				Table:    current.Name,
				Column:   name,
				Message:  "column will be dropped",
				Breaking: true,
			})
		}
	}

	for _, desiredCol := range desired.OrderedColumns() {
		currentCol, exists := current.Column(desiredCol.Name)
		if !exists {
			if !desiredCol.AllowNull && desiredCol.Default == nil && !desiredCol.AutoIncrement {
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   current.Name,
					Column:  desiredCol.Name,
					Message: "new NOT NULL column without default value may fail if table has data",
				})
			}
			continue
		}

		if !strings.EqualFold(currentCol.DBType, desiredCol.DBType) {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:    current.Name,
				Column:   desiredCol.Name,
				Message:  fmt.Sprintf("column type changing from %s to %s", currentCol.DBType, desiredCol.DBType),
				Breaking: currentCol.Type != desiredCol.Type,
			})
		}

		if currentCol.AllowNull && !desiredCol.AllowNull {
			result.add(cfg.allowNullToNotNull, &ValidationError{
				Table:    current.Name,
				Column:   desiredCol.Name,
				Message:  "column changing from NULL to NOT NULL may fail if column has NULL values",
				Breaking: true,
			})
		}

		if currentCol.Size != nil && desiredCol.Size != nil && *desiredCol.Size < *currentCol.Size {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   current.Name,
				Column:  desiredCol.Name,
				Message: fmt.Sprintf("column size reducing from %d to %d may truncate data", *currentCol.Size, *desiredCol.Size),
			})
		}

		if !currentCol.IsPrimaryKey && desiredCol.IsPrimaryKey {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   current.Name,
				Column:  desiredCol.Name,
				Message: "adding column to PRIMARY KEY may fail if duplicate values exist",
			})
		}
	}

	for _, col := range slices.Sorted(maps.Keys(current.ForeignKeys)) {
		fk := current.ForeignKeys[col]
		if _, ok := desired.ForeignKeys[col]; !ok {
			result.add(cfg.allowDropForeignKey, &ValidationError{
				Table:   current.Name,
				Column:  col,
				Message: fmt.Sprintf("foreign key to %s.%s will be dropped", fk.RefTable, fk.RefColumn),
			})
		}
	}
}

// ValidateTable validates a single table descriptor.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}

	if len(t.PrimaryKey) == 0 {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.Name,
			Message: "table has no primary key",
		})
	}

	colNames := make(map[string]bool, len(t.ColumnNames))
	for _, name := range t.ColumnNames {
		if colNames[name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  name,
				Message: "duplicate column name",
			})
		}
		colNames[name] = true
		if _, ok := t.Columns[name]; !ok {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  name,
				Message: "column has no descriptor",
			})
		}
	}

	for _, pk := range t.PrimaryKey {
		if !colNames[pk] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Column:  pk,
				Message: "primary key references non-existent column",
			})
		}
	}

	if t.HasSequence() {
		auto := false
		for _, pk := range t.PrimaryKey {
			if c, ok := t.Column(pk); ok && c.AutoIncrement {
				auto = true
			}
		}
		if !auto {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: "table has a sequence but no auto-increment primary key column",
			})
		}
	}

	for _, col := range slices.Sorted(maps.Keys(t.ForeignKeys)) {
		if !colNames[col] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: fmt.Sprintf("foreign key references non-existent column %q", col),
			})
		}
	}

	return result
}

// ValidateSchema validates all tables of a schema, including that foreign
// keys reference tables of the set.
func ValidateSchema(tables []*Table) *ValidationResult {
	result := &ValidationResult{}

	tableNames := make(map[string]bool)
	for _, t := range tables {
		if tableNames[t.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: "duplicate table name",
			})
		}
		tableNames[t.Name] = true

		tableResult := ValidateTable(t)
		result.Errors = append(result.Errors, tableResult.Errors...)
		result.Warnings = append(result.Warnings, tableResult.Warnings...)
	}

	for _, t := range tables {
		for _, col := range slices.Sorted(maps.Keys(t.ForeignKeys)) {
			fk := t.ForeignKeys[col]
			if !tableNames[lastSegment(fk.RefTable)] && !tableNames[fk.RefTable] {
				result.Warnings = append(result.Warnings, &ValidationError{
					Table:   t.Name,
					Column:  col,
					Message: fmt.Sprintf("foreign key references table %q outside the validated set", fk.RefTable),
				})
			}
		}
	}

	return result
}
