// Package cv provides the low-level computer-vision primitives used by the
// document pipeline: edge detection, thresholding, morphology, contour
// extraction, line detection, and perspective warping.
//
// The detection and skew-estimation packages treat cv as a fixed capability:
// they combine and score its outputs but never reimplement them. Primitives
// operate on *image.Gray for grayscale data and binary masks (foreground is
// 255) and on image.Image for color warps.
//
// Where the ecosystem provides a primitive it is used directly:
// bild/blur for Gaussian smoothing, bild/effect for dilation and erosion,
// bild/segment for global thresholding, and disintegration/imaging for
// grayscale conversion, cropping, and rotation. The remaining primitives
// (Canny chain, adaptive thresholding, contour tracing, Hough segments,
// homography warp) have no pure-Go library equivalent and are implemented
// here.
//
// # Coordinate System
//
// All coordinates use the standard image convention: origin at the top-left
// corner, X increasing rightward, Y increasing downward. Angles reported by
// callers follow the document convention where positive means the content is
// tilted counter-clockwise as displayed.
package cv
