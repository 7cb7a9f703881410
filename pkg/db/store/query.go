package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/heroku-miraheze/ed2kd/pkg/db/search"
	"github.com/heroku-miraheze/ed2kd/pkg/ed2k"
)

// searchBase selects everything a search row carries, including one
// sample source per file so a client can start downloading without a
// separate source lookup. The hidden fnames column keeps its name
// under the alias, so the MATCH clause stays valid.
const searchBase = `SELECT f.hash, f.name, f.size, f.type, f.ext, f.srcavail, f.srccomplete, f.rating, f.rated_count,
  (SELECT sid FROM sources WHERE fid = f.fid LIMIT 1) AS sid,
  f.mlength, f.mbitrate, f.mcodec
 FROM fnames n
 JOIN files f ON f.fid = n.rowid
 WHERE fnames MATCH ?`

// filterClause maps a bound attribute filter to its SQL fragment.
func filterClause(f search.Filter) (string, any, error) {
	var column string
	switch f.Kind {
	case search.KindExtension:
		column = "f.ext"
	case search.KindCodec:
		column = "f.mcodec"
	case search.KindType:
		column = "f.type"
	case search.KindMinSize, search.KindMaxSize:
		column = "f.size"
	case search.KindMinSources:
		column = "f.srcavail"
	case search.KindMinComplete:
		column = "f.srccomplete"
	case search.KindMinBitrate:
		column = "f.mbitrate"
	case search.KindMinLength:
		column = "f.mlength"
	default:
		return "", nil, fmt.Errorf("%w: filter kind %v", search.ErrMalformedTree, f.Kind)
	}

	var op string
	switch f.Op {
	case search.OpGreater:
		op = ">"
	case search.OpLess:
		op = "<"
	default:
		op = "="
	}

	var value any
	switch f.Kind {
	case search.KindExtension, search.KindCodec:
		value = f.Str
	default:
		value = int64(f.Int)
	}

	return fmt.Sprintf(" AND %s %s ?", column, op), value, nil
}

// SearchFiles combines the compiled match expression and filters into
// one parameterized lookup and streams at most limit rows into sink.
// The match clause is always present and always first; the filters
// follow in their compiled order.
func (s *SQLiteStore) SearchFiles(ctx context.Context, query *search.Query, limit int, sink RowSink) (int, error) {
	if limit <= 0 || query == nil {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(searchBase)

	args := make([]any, 0, len(query.Filters)+2)
	args = append(args, query.Match)

	for _, f := range query.Filters {
		clause, value, err := filterClause(f)
		if err != nil {
			return 0, err
		}
		sb.WriteString(clause)
		args = append(args, value)
	}

	sb.WriteString(" LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.WithContext(ctx).Raw(sb.String(), args...).Rows()
	if err != nil {
		return 0, fmt.Errorf("search query: %w: %v", ErrStorageEngine, err)
	}
	defer rows.Close()

	produced := 0
	for rows.Next() && produced < limit {
		var (
			row      SearchRow
			fileType uint8
			sid      sql.NullInt64
			mlength  sql.NullInt64
			mbitrate sql.NullInt64
			ext      sql.NullString
			mcodec   sql.NullString
		)

		err := rows.Scan(&row.Hash, &row.Name, &row.Size, &fileType, &ext,
			&row.SrcAvail, &row.SrcComplete, &row.RatingSum, &row.RatedCount,
			&sid, &mlength, &mbitrate, &mcodec)
		if err != nil {
			return produced, fmt.Errorf("search scan: %w: %v", ErrStorageEngine, err)
		}

		row.Type = ed2k.FileType(fileType)
		row.Name = ed2k.Truncate(row.Name, ed2k.MaxFileNameLen)
		row.Ext = ed2k.Truncate(ext.String, ed2k.MaxFileExtLen)
		row.MediaCodec = ed2k.Truncate(mcodec.String, ed2k.MaxCodecLen)
		row.MediaLength = mlength.Int64
		row.MediaBitrate = mbitrate.Int64
		if sid.Valid {
			row.Source = EndpointFromKey(uint64(sid.Int64))
		}

		if err := sink(&row); err != nil {
			return produced, fmt.Errorf("search row sink: %w", err)
		}
		produced++
	}

	if err := rows.Err(); err != nil {
		return produced, fmt.Errorf("search rows: %w: %v", ErrStorageEngine, err)
	}
	return produced, nil
}
