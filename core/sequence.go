package core

// Sequence is a named generator referenced with NEXT VALUE FOR.
type Sequence struct {
	Name      *QualifiedName `json:"name"`
	Start     int64          `json:"start"`
	Increment int64          `json:"increment"`
}
