package ed2k

import "strings"

// FileType is the enumerated media category of a shared file.
type FileType uint8

const (
	FileTypeAny FileType = iota
	FileTypeAudio
	FileTypeVideo
	FileTypeImage
	FileTypeProgram
	FileTypeDocument
	FileTypeArchive
	FileTypeCDImage
)

// fileTypeNames maps the category names clients send in TYPE search
// constraints to their wire-stable numeric category. Matching is
// case-insensitive.
var fileTypeNames = map[string]FileType{
	"audio": FileTypeAudio,
	"video": FileTypeVideo,
	"image": FileTypeImage,
	"pro":   FileTypeProgram,
	"doc":   FileTypeDocument,
	"arc":   FileTypeArchive,
	"iso":   FileTypeCDImage,
}

// FileTypeFromName resolves a category name to its FileType. The
// second return value is false when the name is not a known category.
func FileTypeFromName(name string) (FileType, bool) {
	t, ok := fileTypeNames[strings.ToLower(name)]
	return t, ok
}

func (t FileType) String() string {
	switch t {
	case FileTypeAudio:
		return "audio"
	case FileTypeVideo:
		return "video"
	case FileTypeImage:
		return "image"
	case FileTypeProgram:
		return "pro"
	case FileTypeDocument:
		return "doc"
	case FileTypeArchive:
		return "arc"
	case FileTypeCDImage:
		return "iso"
	}
	return "any"
}

// FileExtension returns the extension of a shared name without the
// dot, or "" when the name has none. A trailing dot counts as no
// extension.
func FileExtension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}
