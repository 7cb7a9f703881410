package store

import "github.com/heroku-miraheze/ed2kd/pkg/ed2k"

// Endpoint identifies a peer by its announced address and port.
type Endpoint struct {
	Addr uint32
	Port uint16
}

// Key packs the endpoint into its 64-bit catalog source key.
func (e Endpoint) Key() uint64 {
	return ed2k.SourceKey(e.Addr, e.Port)
}

// EndpointFromKey unpacks a catalog source key.
func EndpointFromKey(key uint64) Endpoint {
	addr, port := ed2k.DecodeSourceKey(key)
	return Endpoint{Addr: addr, Port: port}
}

// FileShareInput is one file of a peer's share announcement.
type FileShareInput struct {
	Hash         [ed2k.HashSize]byte
	Name         string
	Size         int64
	Type         ed2k.FileType
	Complete     bool
	Rating       int8
	MediaLength  int64
	MediaBitrate int64
	MediaCodec   string
}

// SearchRow is one matching file streamed to a search row sink. Name
// and MediaCodec are already clamped to the server truncation limits.
type SearchRow struct {
	Hash         []byte
	Name         string
	Size         int64
	Type         ed2k.FileType
	Ext          string
	SrcAvail     int64
	SrcComplete  int64
	RatingSum    int64
	RatedCount   int64
	Source       Endpoint
	MediaLength  int64
	MediaBitrate int64
	MediaCodec   string
}

// RowSink receives search rows as they stream out of the catalog.
// Returning an error aborts the search.
type RowSink func(*SearchRow) error
