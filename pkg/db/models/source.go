package models

// SourceRecord represents one (file, peer) offering relationship.
//
// There is no surrogate key; rows are addressed by the fid and sid
// indexes. Inserting or deleting a row adjusts the owning FileRecord's
// derived counters through the store's triggers, and the owning record
// is pruned when its last source goes away.
type SourceRecord struct {
	FID      int64 `gorm:"column:fid;not null;index:sources_fid_i"`
	SID      int64 `gorm:"column:sid;not null;index:sources_sid_i"`
	Complete int   `gorm:"column:complete"`
	Rating   int   `gorm:"column:rating"`
}

// TableName overrides the GORM default table name.
func (SourceRecord) TableName() string {
	return "sources"
}
