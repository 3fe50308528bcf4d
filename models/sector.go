package models

// Sector identifies a fixed-size streaming grid cell over the world bounds.
type Sector struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Less orders sectors row-major, used to keep sector lists deterministic.
func (s Sector) Less(o Sector) bool {
	if s.Row != o.Row {
		return s.Row < o.Row
	}
	return s.Col < o.Col
}
