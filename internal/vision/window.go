package vision

import "gocv.io/x/gocv"

// Viewer shows annotated frames in a desktop window.
type Viewer struct {
	window *gocv.Window
}

// NewViewer opens a window titled name.
func NewViewer(name string) *Viewer {
	return &Viewer{window: gocv.NewWindow(name)}
}

// Show displays frame and pumps the window event loop for 1ms.
func (v *Viewer) Show(frame gocv.Mat) {
	v.window.IMShow(frame)
	v.window.WaitKey(1)
}

// Close destroys the window.
func (v *Viewer) Close() error {
	return v.window.Close()
}
