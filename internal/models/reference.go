package models

// Reference is the shape shared by the simple catalog entities a film points at.
type Reference struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100;uniqueIndex;not null" validate:"notblank,max=100"`
}

// Ref gives generic code access to the embedded Reference.
func (r *Reference) Ref() *Reference {
	return r
}

// Genre represents a film genre (e.g., "Comedy", "Drama").
type Genre struct {
	Reference
}

// Mpa represents a content rating assigned by the rating board (e.g., "PG-13").
type Mpa struct {
	Reference
}

// TableName keeps the rating board table singular.
func (Mpa) TableName() string {
	return "mpa"
}

// Director represents a film director.
type Director struct {
	Reference
}

// RefPtr is satisfied by pointers to catalog entities; generic storage code uses it
// to reach the embedded Reference.
type RefPtr[T any] interface {
	*T
	Ref() *Reference
}
