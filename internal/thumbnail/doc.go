// Package thumbnail generates gallery thumbnails for ingested media.
//
// Photos are center-cropped to a 400x400 JPEG. Videos get a single frame
// extracted one second in with ffmpeg, which must be installed separately.
// An uploader-provided thumbnail bypasses generation and is stored as-is.
package thumbnail
