package model

import (
	"strings"
	"time"
	"unicode"
)

// NamespacePrefix is prepended to every organization namespace name
const NamespacePrefix = "org_"

// RegistryCollection is the shared namespace that holds all organization records
const RegistryCollection = "master_organizations"

// Organization represents a tenant record stored in the registry.
// Namespace is always derived from Name, see NamespaceName.
type Organization struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name              string    `json:"organization_name" gorm:"column:organization_name;type:varchar(255);not null;uniqueIndex"`
	Namespace         string    `json:"organization_collection" gorm:"column:organization_collection;type:varchar(255);not null;uniqueIndex"`
	AdminEmail        string    `json:"admin_email" gorm:"column:admin_email;type:varchar(255);not null;index"`
	AdminPasswordHash string    `json:"admin_password_hash" gorm:"column:admin_password_hash;type:varchar(255);not null"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at;not null"`
}

// TableName keeps the registry table name stable across backends
func (Organization) TableName() string {
	return RegistryCollection
}

// OrganizationUpdate is a partial update of the mutable organization fields.
// A nil field is left unchanged.
type OrganizationUpdate struct {
	Name              *string
	Namespace         *string
	AdminEmail        *string
	AdminPasswordHash *string
}

// Apply copies the non-nil fields of u onto org
func (u OrganizationUpdate) Apply(org *Organization) {
	if u.Name != nil {
		org.Name = *u.Name
	}
	if u.Namespace != nil {
		org.Namespace = *u.Namespace
	}
	if u.AdminEmail != nil {
		org.AdminEmail = *u.AdminEmail
	}
	if u.AdminPasswordHash != nil {
		org.AdminPasswordHash = *u.AdminPasswordHash
	}
}

// Columns returns the registry column values set by u
func (u OrganizationUpdate) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if u.Name != nil {
		cols["organization_name"] = *u.Name
	}
	if u.Namespace != nil {
		cols["organization_collection"] = *u.Namespace
	}
	if u.AdminEmail != nil {
		cols["admin_email"] = *u.AdminEmail
	}
	if u.AdminPasswordHash != nil {
		cols["admin_password_hash"] = *u.AdminPasswordHash
	}
	return cols
}

// Empty reports whether u changes nothing
func (u OrganizationUpdate) Empty() bool {
	return u.Name == nil && u.Namespace == nil && u.AdminEmail == nil && u.AdminPasswordHash == nil
}

// NamespaceName derives the storage namespace of an organization from its name:
// the name is lowercased and every whitespace rune becomes an underscore.
func NamespaceName(organizationName string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, strings.ToLower(organizationName))
	return NamespacePrefix + name
}

// IsOrganizationNamespace reports whether a namespace name carries the organization prefix
func IsOrganizationNamespace(name string) bool {
	return strings.HasPrefix(name, NamespacePrefix) && len(name) > len(NamespacePrefix)
}
