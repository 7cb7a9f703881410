package models

// FileRecord represents one distinct shared file in the catalog.
//
// The primary key is the sdbm-derived file key, not an autoincrement
// id, so re-shares of the same content hash land on the same row.
// SrcAvail, SrcComplete, Rating and RatedCount are derived counters
// maintained by the store's triggers in response to source
// insert/delete; callers never write them directly.
type FileRecord struct {
	FID  int64  `gorm:"column:fid;primaryKey;autoIncrement:false"`
	Hash []byte `gorm:"column:hash;type:blob;not null"`
	Name string `gorm:"column:name;type:text;not null"`
	Ext  string `gorm:"column:ext;type:text"`
	Size int64  `gorm:"column:size;not null"`
	Type uint8  `gorm:"column:type;not null"`

	// Derived counters
	SrcAvail    int64 `gorm:"column:srcavail;default:0"`
	SrcComplete int64 `gorm:"column:srccomplete;default:0"`
	Rating      int64 `gorm:"column:rating;default:0"`
	RatedCount  int64 `gorm:"column:rated_count;default:0"`

	// Media metadata, zero when the client sent none
	MediaLength  int64  `gorm:"column:mlength"`
	MediaBitrate int64  `gorm:"column:mbitrate"`
	MediaCodec   string `gorm:"column:mcodec;type:text"`
}

// TableName overrides the GORM default so the trigger SQL and the
// search join can refer to the table by its short name.
func (FileRecord) TableName() string {
	return "files"
}
