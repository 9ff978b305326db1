package source

type (
	// FileID identifies a source file within a FileSet. Registered files get
	// non-zero ids; NoFileID marks synthetic locations.
	FileID uint32
	// FileFlags encodes metadata about a source file.
	FileFlags uint8
)

// NoFileID is the file id of SourceRange.undefined().
const NoFileID FileID = 0

const (
	// FileVirtual indicates the file was added from memory (test, stdin, stdlib).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
	// FileBuiltin marks declarations shipped with the compiler.
	FileBuiltin
)

// File captures metadata and content for a single source file.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // offsets of '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol represents a human-readable position in a source file.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}
