package model

import "time"

// InitMarkerKey is the document key of the marker written into a fresh namespace
const InitMarkerKey = "_init"

// InitMarkerType is the type value of the init marker document
const InitMarkerType = "init"

// NamespaceDocument is a schemaless document stored inside an organization namespace
type NamespaceDocument struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Type      string    `json:"type" gorm:"type:varchar(64)"`
	Payload   string    `json:"payload,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewInitMarker returns the marker document that makes a namespace addressable
func NewInitMarker(at time.Time) NamespaceDocument {
	return NamespaceDocument{
		ID:        InitMarkerKey,
		Type:      InitMarkerType,
		CreatedAt: at.UTC(),
	}
}
