package schema

import "fmt"

// Validate checks that every foreign key in the snapshot references tables
// and columns that exist. Keys with an empty parent table carry no
// relationship and are ignored. The first violation is returned wrapped in
// ErrInconsistentSchema.
func Validate(s *Snapshot) error {
	for _, t := range s.Tables {
		for _, fk := range t.ForeignKeys {
			if fk.ParentTable == "" {
				continue
			}
			if err := validateKey(s, fk); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateKey(s *Snapshot, fk ForeignKey) error {
	child, ok := s.Table(fk.ChildTable)
	if !ok {
		return fmt.Errorf("%w: foreign key %s: child table %q not loaded",
			ErrInconsistentSchema, describe(fk), fk.ChildTable)
	}
	if !child.HasColumn(fk.ChildColumn) {
		return fmt.Errorf("%w: foreign key %s: column %q not found in table %q",
			ErrInconsistentSchema, describe(fk), fk.ChildColumn, fk.ChildTable)
	}
	parent, ok := s.Table(fk.ParentTable)
	if !ok {
		return fmt.Errorf("%w: foreign key %s: referenced table %q not loaded",
			ErrInconsistentSchema, describe(fk), fk.ParentTable)
	}
	if !parent.HasColumn(fk.ParentColumn) {
		return fmt.Errorf("%w: foreign key %s: referenced column %q not found in table %q",
			ErrInconsistentSchema, describe(fk), fk.ParentColumn, fk.ParentTable)
	}
	return nil
}

func describe(fk ForeignKey) string {
	edge := fmt.Sprintf("%s.%s -> %s.%s", fk.ChildTable, fk.ChildColumn, fk.ParentTable, fk.ParentColumn)
	if fk.Name != "" {
		return fmt.Sprintf("%q (%s)", fk.Name, edge)
	}
	return edge
}
