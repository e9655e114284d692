package namespace

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/aaayushh7/Organization-Management-Service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProvisioner maps every namespace to its own documents table
type GormProvisioner struct {
	db *gorm.DB
}

var _ Provisioner = (*GormProvisioner)(nil)

// NewGormProvisioner creates a provisioner over db
func NewGormProvisioner(db *gorm.DB) *GormProvisioner {
	return &GormProvisioner{db: db}
}

// tableEscape delimits the hex-encoded bytes of a rune that is not safe in a table name
const tableEscape = '-'

// tableName maps a namespace to the table holding it. Letters, digits and
// underscores pass through; every other rune, the escape included, becomes
// its UTF-8 bytes in hex between two escapes, so "org_acme_inc." is stored as
// "org_acme_inc-2e-". Gorm splits table names on dots and passes quote
// characters through, which the mapping keeps out of the identifier.
func tableName(namespace string) string {
	var b strings.Builder
	for _, r := range namespace {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		buf := make([]byte, utf8.RuneLen(r))
		utf8.EncodeRune(buf, r)
		b.WriteRune(tableEscape)
		b.WriteString(hex.EncodeToString(buf))
		b.WriteRune(tableEscape)
	}
	return b.String()
}

// namespaceFromTable reverses tableName; ok is false for tables it did not produce
func namespaceFromTable(table string) (string, bool) {
	var b strings.Builder
	for {
		i := strings.IndexRune(table, tableEscape)
		if i < 0 {
			b.WriteString(table)
			return b.String(), true
		}
		b.WriteString(table[:i])
		rest := table[i+1:]
		j := strings.IndexRune(rest, tableEscape)
		if j < 0 {
			return "", false
		}
		raw, err := hex.DecodeString(rest[:j])
		if err != nil || len(raw) == 0 {
			return "", false
		}
		b.Write(raw)
		table = rest[j+1:]
	}
}

// Create creates the namespace table and writes the init marker
func (p *GormProvisioner) Create(ctx context.Context, name string) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table := tableName(name)
		if err := tx.Table(table).AutoMigrate(&model.NamespaceDocument{}); err != nil {
			return err
		}
		marker := model.NewInitMarker(time.Now())
		return tx.Table(table).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&marker).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return nil
}

// Rename renames the namespace table
func (p *GormProvisioner) Rename(ctx context.Context, oldName, newName string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := tx.Migrator()
		oldTable, newTable := tableName(oldName), tableName(newName)
		if !m.HasTable(oldTable) {
			return ErrNotFound
		}
		if m.HasTable(newTable) {
			return ErrConflict
		}
		if err := m.RenameTable(oldTable, newTable); err != nil {
			return fmt.Errorf("failed to rename namespace %s to %s: %w", oldName, newName, err)
		}
		return nil
	})
}

// Drop drops the namespace table if present
func (p *GormProvisioner) Drop(ctx context.Context, name string) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Migrator().DropTable(tableName(name))
	})
	if err != nil {
		return fmt.Errorf("failed to drop namespace %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the namespace table exists
func (p *GormProvisioner) Exists(ctx context.Context, name string) (bool, error) {
	return p.db.WithContext(ctx).Migrator().HasTable(tableName(name)), nil
}

// List returns the namespace tables
func (p *GormProvisioner) List(ctx context.Context) ([]string, error) {
	tables, err := p.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		if name, ok := namespaceFromTable(table); ok {
			names = append(names, name)
		}
	}
	return organizationNamespaces(names), nil
}
