package models

// ============================================================
// Run Model
// ============================================================

// Run is one recorded normalization.
type Run struct {
	ID        string `json:"id"`
	InputName string `json:"input_name"`
	Source    string `json:"source"`
	Circles   int    `json:"circles"`
	Arcs      int    `json:"arcs"`
	Loops     int    `json:"loops"`
	Polylines int    `json:"polylines"`
	Deleted   int    `json:"deleted"`
	Inserted  int    `json:"inserted"`
	Warnings  int    `json:"warnings"`
	Truncated bool   `json:"truncated"`
	CreatedAt string `json:"created_at"`
}
