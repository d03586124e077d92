// Package fragment holds the shared vocabulary of the fragmentation engine:
// the source-kind variant and the error taxonomy every stage reports through.
//
// The engine turns one still image or short animation into an ordered set of
// fixed-size tiles, each encoded independently. All stage packages (grid,
// raster, frames, encode, pipeline) speak in these terms so that callers can
// classify failures with errors.Is without importing stage internals.
package fragment

import "errors"

// SourceKind tags a source as static or animated. It is decided once at
// ingestion and threaded through the pipeline; stages never re-derive it
// from the file.
type SourceKind int

const (
	// SourceStatic is a single still image.
	SourceStatic SourceKind = iota

	// SourceAnimated is a frame-based animation or video clip.
	SourceAnimated
)

// String returns the kind name for logs.
func (k SourceKind) String() string {
	switch k {
	case SourceStatic:
		return "static"
	case SourceAnimated:
		return "animated"
	default:
		return "unknown"
	}
}

// ArtifactExt returns the file extension of the artifact this kind of
// source produces: a lossless PNG for stills, a short WEBM clip otherwise.
func (k SourceKind) ArtifactExt() string {
	if k == SourceAnimated {
		return ".webm"
	}
	return ".png"
}

// Error taxonomy. Every failure a pipeline run can surface wraps exactly one
// of these sentinels; all of them abort the run with no partial result.
var (
	// ErrInvalidInput marks a source below the minimum usable dimensions or
	// a requested grid outside the allowed tile-count bounds.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat marks a container the decode capability does not
	// recognize.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrDecode marks a decode that crashed or produced zero frames.
	ErrDecode = errors.New("decode failed")

	// ErrEncode marks a non-zero exit from the external encoder.
	ErrEncode = errors.New("encode failed")
)
