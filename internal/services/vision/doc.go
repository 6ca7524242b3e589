// Package vision holds the cgo-free side of region handling: image loading,
// region geometry and colors.
//
// Detection (package cv) works on a PixelBuffer (packed RGB) and returns
// Regions, closed boundary polygons identified only by their position in the returned list.
// Every region index maps to a fixed color (ColorFor), which the overlay
// renderers in package cv use in three modes:
//
//   - outlines: opaque 2px border for every region
//   - saved: translucent fill plus opaque border
//   - highlights: opaque fill
//
// Locate resolves a pixel coordinate to the lowest-index region containing it.
//
// Coordinates follow the image convention: (0,0) is the top-left pixel,
// X grows rightward and Y grows downward.
package vision
