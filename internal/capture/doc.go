// Package capture provides frame sources for the acquisition loop.
//
// Every source implements Source. Read returns one frame at a time and
// distinguishes three outcomes:
//
//   - a frame
//   - ErrEndOfStream, when a finite source is exhausted
//   - an error matching ErrFrameUnavailable (usually a *ReadError), when a
//     frame could not be acquired
//
// A failed read never yields an empty image.
//
// Sources:
//
//   - FileSource: a list of image files, decoded through imaging.ImageCache
//   - VideoSource: a video file sampled through ffmpeg (image2pipe, PNG)
//   - ScreenSource: the primary screen or a rectangle of it
//   - CameraSource: a webcam through gocv, only in builds tagged gocv
//
// Frames are RGB. The camera source converts from gocv's BGR at the boundary.
package capture
