package domain

import "time"

// Department groups items by organizational unit. Departments with assigned
// items cannot be deleted.
type Department struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d Department) Validate() error {
	if d.Name == "" {
		return Validationf("department name is required")
	}
	return nil
}

// Category is an optional item classification. Same delete restriction as
// departments.
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Category) Validate() error {
	if c.Name == "" {
		return Validationf("category name is required")
	}
	return nil
}
