// Package formats reads and writes heightmap files.
//
// The raw format is a 9 byte little-endian header (width, height, 16-bit
// flag) followed by row-major samples. Whole files can be loaded at once or
// read region by region for streaming. PNG and TIFF images can be decoded
// into the same in-memory layout.
package formats
