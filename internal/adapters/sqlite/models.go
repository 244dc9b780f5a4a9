package sqlite

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

type departmentModel struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string         `gorm:"column:name;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (departmentModel) TableName() string {
	return "departments"
}

type categoryModel struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string         `gorm:"column:name;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (categoryModel) TableName() string {
	return "categories"
}

type itemModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string         `gorm:"column:name;not null"`
	Quantity     int            `gorm:"column:quantity;not null"`
	Unit         string         `gorm:"column:unit;not null"`
	CategoryID   *int64         `gorm:"column:category_id"`
	DepartmentID int64          `gorm:"column:department_id;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (itemModel) TableName() string {
	return "items"
}

type userModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string         `gorm:"column:username;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;not null"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (userModel) TableName() string {
	return "users"
}

type roleModel struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string         `gorm:"column:name;not null"`
	Description string         `gorm:"column:description"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;not null"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at"`
}

func (roleModel) TableName() string {
	return "roles"
}

type permissionModel struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string `gorm:"column:name;not null"`
	Description string `gorm:"column:description;not null"`
}

func (permissionModel) TableName() string {
	return "permissions"
}

type userRoleModel struct {
	UserID int64 `gorm:"column:user_id;primaryKey"`
	RoleID int64 `gorm:"column:role_id;primaryKey"`
}

func (userRoleModel) TableName() string {
	return "user_roles"
}

type rolePermissionModel struct {
	RoleID       int64 `gorm:"column:role_id;primaryKey"`
	PermissionID int64 `gorm:"column:permission_id;primaryKey"`
}

func (rolePermissionModel) TableName() string {
	return "role_permissions"
}

type changeEventModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Operation    string    `gorm:"column:operation;not null"`
	ChangedAt    time.Time `gorm:"column:changed_at;not null"`
	ChangedBy    int64     `gorm:"column:changed_by;not null"`
	ItemID       *int64    `gorm:"column:item_id"`
	CategoryID   *int64    `gorm:"column:category_id"`
	DepartmentID *int64    `gorm:"column:department_id"`
	RoleID       *int64    `gorm:"column:role_id"`
	UserID       *int64    `gorm:"column:user_id"`
	Details      *string   `gorm:"column:change_details"`
}

func (changeEventModel) TableName() string {
	return "change_events"
}

type changeDetailModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ChangeEventID int64     `gorm:"column:change_event_id;not null"`
	Field         string    `gorm:"column:field;not null"`
	OldValue      *string   `gorm:"column:old_value"`
	NewValue      *string   `gorm:"column:new_value"`
	DiffType      string    `gorm:"column:diff_type;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

func (changeDetailModel) TableName() string {
	return "change_event_details"
}

// Snapshot builders expose each row under the API's camelCase field names.
// Field sets must stay in sync with the gorm models above; the primary key
// and timestamps are never part of a snapshot.

func itemFields(m itemModel) map[string]any {
	return map[string]any{
		"name":         m.Name,
		"quantity":     m.Quantity,
		"unit":         m.Unit,
		"categoryId":   optID(m.CategoryID),
		"departmentId": m.DepartmentID,
	}
}

func departmentFields(m departmentModel) map[string]any {
	return map[string]any{"name": m.Name}
}

func categoryFields(m categoryModel) map[string]any {
	return map[string]any{"name": m.Name}
}

func userFields(m userModel) map[string]any {
	return map[string]any{
		"username":     m.Username,
		"passwordHash": m.PasswordHash,
	}
}

func roleFields(m roleModel) map[string]any {
	return map[string]any{
		"name":        m.Name,
		"description": m.Description,
	}
}

func optID(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// changedFieldNames lists the fields whose value differs between two
// snapshots of the same row, in a stable order.
func changedFieldNames(before, after map[string]any) []string {
	var changed []string
	for _, field := range sortedFieldNames(after) {
		if before[field] != after[field] {
			changed = append(changed, field)
		}
	}
	return changed
}

func sortedFieldNames(m map[string]any) []string {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func toDomainItem(m itemModel) domain.Item {
	return domain.Item{
		ID:           m.ID,
		Name:         m.Name,
		Quantity:     m.Quantity,
		Unit:         domain.UnitType(m.Unit),
		CategoryID:   m.CategoryID,
		DepartmentID: m.DepartmentID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDomainDepartment(m departmentModel) domain.Department {
	return domain.Department{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func toDomainCategory(m categoryModel) domain.Category {
	return domain.Category{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func toDomainUser(m userModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDomainRole(m roleModel) domain.Role {
	return domain.Role{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDomainPermission(m permissionModel) domain.Permission {
	return domain.Permission{ID: m.ID, Name: m.Name, Description: m.Description}
}
