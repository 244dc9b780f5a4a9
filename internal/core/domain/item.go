package domain

import "time"

// UnitType is the closed set of measurement units an item can be counted in.
type UnitType string

const (
	UnitPiece    UnitType = "und."
	UnitKilogram UnitType = "kg"
	UnitLiter    UnitType = "l"
	UnitMeter    UnitType = "m"
)

func (u UnitType) Valid() bool {
	switch u {
	case UnitPiece, UnitKilogram, UnitLiter, UnitMeter:
		return true
	}
	return false
}

type Item struct {
	ID           int64
	Name         string
	Quantity     int
	Unit         UnitType
	CategoryID   *int64
	DepartmentID int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i Item) Validate() error {
	if i.Name == "" {
		return Validationf("item name is required")
	}
	if i.Quantity < 1 {
		return Validationf("quantity must be at least 1")
	}
	if !i.Unit.Valid() {
		return Validationf("invalid unit: %s", i.Unit)
	}
	if i.DepartmentID <= 0 {
		return Validationf("departmentId is required")
	}
	if i.CategoryID != nil && *i.CategoryID <= 0 {
		return Validationf("categoryId must be positive")
	}
	return nil
}

// OptionalRef is a tri-state patch value for a nullable relationship field:
// not set, set to null (unlink) or set to an id (link).
type OptionalRef struct {
	Set bool
	ID  *int64
}

// ItemUpdate is a partial update; nil pointers leave the field untouched.
type ItemUpdate struct {
	Name         *string
	Quantity     *int
	Unit         *UnitType
	CategoryID   OptionalRef
	DepartmentID *int64
}
